// Package scripts holds the server-side Lua used for compare-and-swap and a
// registry that loads it once on every primary.
package scripts

import "github.com/redis/go-redis/v9"

const (
	RemoveIfEqualName  = "remove-if-equal"
	ReplaceIfEqualName = "replace-if-equal"
)

// KEYS[1] = key, ARGV[1] = expected encoded value.
const removeIfEqualSrc = `local key = KEYS[1]
local value = ARGV[1]
if redis.call('get', key) == value then
  return redis.call('del', key)
else
  return 0
end
`

// KEYS[1] = key, ARGV[1] = new encoded value, ARGV[2] = expected encoded value,
// ARGV[3] = ttl in milliseconds or "" to store without expiry.
const replaceIfEqualSrc = `local key = KEYS[1]
local value = ARGV[1]
local expected = ARGV[2]
local ttl = ARGV[3]
if redis.call('get', key) == expected then
  if ttl ~= nil and ttl ~= '' then
    redis.call('set', key, value, 'PX', ttl)
  else
    redis.call('set', key, value)
  end
  return 1
end
return 0
`

// Script is a named Lua body with its stable SHA1.
type Script struct {
	Name   string
	script *redis.Script
}

func newScript(name, src string) Script {
	return Script{Name: name, script: redis.NewScript(src)}
}

// Hash is the SHA1 Redis uses to address the script.
func (s Script) Hash() string { return s.script.Hash() }

var (
	RemoveIfEqual  = newScript(RemoveIfEqualName, removeIfEqualSrc)
	ReplaceIfEqual = newScript(ReplaceIfEqualName, replaceIfEqualSrc)
)

// All lists the scripts in load order.
func All() []Script { return []Script{RemoveIfEqual, ReplaceIfEqual} }

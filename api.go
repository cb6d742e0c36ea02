package casredis

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/casredis/codec"
	"github.com/unkn0wn-root/casredis/near"
)

// Options configure a Client. Only Client is required (unless Disabled).
type Options struct {
	Client      redis.UniversalClient
	CloseClient bool // set true only if the cache exclusively owns the client

	Disabled   bool          // reads miss and writes report false, without network calls
	DefaultTTL time.Duration // 0 => 1m
	Prefix     string        // prepended to every key, e.g. "app:prod:"
	Serializer codec.Serializer
	Logger     Logger // nil => NopLogger
	Hooks      Hooks  // nil => NopHooks

	// Near is an optional in-process tier consulted before Redis. Only writes
	// made through this Client invalidate it; foreign writes surface after NearTTL.
	// Entries never outlive the key's TTL in Redis.
	Near    near.Cache
	NearTTL time.Duration // 0 => 5s
}

// Cache is a typed view over a Client. Key-level operations that do not
// touch values (Remove, Exists, expirations, flush) come from the embedded Client.
type Cache[V any] struct {
	*Client
	codec codec.Codec[V]
}

// For returns a typed view of c. Views are cheap; create one per value type.
func For[V any](c *Client) *Cache[V] {
	return &Cache[V]{Client: c, codec: codec.New[V](c.ser)}
}

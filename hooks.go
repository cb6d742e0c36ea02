package casredis

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The client calls them on hot paths.
type Hooks interface {
	// Every public operation, once, when it returns.
	// op ∈ {"get", "get_all", "add", "replace", "remove", "remove_all", "remove_if_equals",
	// "replace_if_equals", "exists", "get_expiration", "set_expiration", "flush_all"}
	Op(op string, took time.Duration, err error)

	// Outcome of every key read (GetAll reports each key).
	Read(state State)

	// A stored value could not be decoded and was reported as a miss.
	DecodeFailed(key string, err error)

	// CAS scripts were registered on the given number of primaries.
	ScriptsLoaded(primaries int)

	// Script handles were dropped. reason ∈ {"noscript", "manual"}
	ScriptsReset(reason string)

	// Outcome of flushing one node during FlushAll.
	FlushNode(r NodeResult)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Op(string, time.Duration, error) {}
func (NopHooks) Read(State)                      {}
func (NopHooks) DecodeFailed(string, error)      {}
func (NopHooks) ScriptsLoaded(int)               {}
func (NopHooks) ScriptsReset(string)             {}
func (NopHooks) FlushNode(NodeResult)            {}

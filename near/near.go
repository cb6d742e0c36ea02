// Package near provides in-process caches that sit in front of Redis.
//
// Implementations hold raw wire bytes exactly as read from Redis. They must
// be safe for concurrent use and return the same bytes that were Set.
package near

import "time"

// Cache is a local byte cache. A miss is (nil, false).
type Cache interface {
	Get(key string) ([]byte, bool)
	// Set may drop the entry under memory pressure. ttl is a hint; stores
	// without per-entry expiry use their own window.
	Set(key string, value []byte, ttl time.Duration)
	Del(key string)
	Clear()
	Close() error
}

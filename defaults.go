package casredis

import "time"

const (
	// fallbackTTL applies when neither the call nor Options set a TTL;
	// nothing is written without an expiry.
	fallbackTTL    = time.Minute
	defaultNearTTL = 5 * time.Second
	scanCount      = 512

	noExpiry time.Duration = -1 // PTTL reply for a key without expiry
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

package casredis

import "time"

// State is the outcome of reading one key.
type State uint8

const (
	// NotFound: the key is absent, or its value could not be decoded.
	NotFound State = iota
	// FoundNull: the key holds the null marker.
	FoundNull
	// Found: the key holds a value.
	Found
)

func (s State) String() string {
	switch s {
	case Found:
		return "found"
	case FoundNull:
		return "found_null"
	default:
		return "not_found"
	}
}

// Item is the result of a read.
type Item[V any] struct {
	Value V
	// ExpiresIn is the remaining TTL. Zero when unknown or when the key has no expiry.
	ExpiresIn time.Duration
	State     State
}

func (i Item[V]) Found() bool   { return i.State == Found }
func (i Item[V]) IsNull() bool  { return i.State == FoundNull }
func (i Item[V]) Missing() bool { return i.State == NotFound }

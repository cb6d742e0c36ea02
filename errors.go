package casredis

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is matched by every *ArgumentError.
	ErrInvalidArgument = errors.New("casredis: invalid argument")
	// ErrStoreUnavailable is matched by every *StoreError.
	ErrStoreUnavailable = errors.New("casredis: store unavailable")
	ErrNilClient        = errors.New("casredis: nil redis client")
)

// ArgumentError is returned before any network call.
type ArgumentError struct {
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("casredis: invalid %s: %s", e.Param, e.Reason)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// EncodingError reports a value that could not be serialized.
type EncodingError struct {
	Key string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("casredis: encode %q: %v", e.Key, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// StoreError wraps a Redis transport, server or context error.
type StoreError struct {
	Op  string
	Key string // empty for multi-key and administrative ops
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("casredis: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("casredis: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func emptyKey() error { return &ArgumentError{Param: "key", Reason: "must not be empty"} }

func checkKey(key string) error {
	if key == "" {
		return emptyKey()
	}
	return nil
}

func checkKeys(ks []string) error {
	for _, k := range ks {
		if k == "" {
			return emptyKey()
		}
	}
	return nil
}

package casredis

import (
	"context"
	"time"
)

// RemoveIfEquals deletes key only if its stored value encodes identically to
// expected. false covers both a mismatch and an absent key.
func (c *Cache[V]) RemoveIfEquals(ctx context.Context, key string, expected V) (removed bool, err error) {
	defer c.observe("remove_if_equals", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return false, err
	}
	return c.removeIfEquals(ctx, key, expected)
}

func (c *Cache[V]) removeIfEquals(ctx context.Context, key string, expected V) (bool, error) {
	exp, err := c.codec.Encode(expected)
	if err != nil {
		return false, &EncodingError{Key: key, Err: err}
	}
	sk := c.storageKey(key)
	defer c.nearDel(sk)
	ok, err := c.scripts.RemoveIfEqual(ctx, sk, exp)
	if err != nil {
		return false, c.storeErr("remove_if_equals", sk, err)
	}
	return ok, nil
}

// ReplaceIfEquals atomically stores value only if the stored value encodes
// identically to expected. ttl follows Add: 0 applies the default, negative
// turns the call into RemoveIfEquals.
func (c *Cache[V]) ReplaceIfEquals(ctx context.Context, key string, value, expected V, ttl time.Duration) (ok bool, err error) {
	defer c.observe("replace_if_equals", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return false, err
	}
	ttl, write := c.resolveTTL(ttl)
	if !write {
		c.log.Debug("negative ttl, removing if equal", Fields{"key": key})
		return c.removeIfEquals(ctx, key, expected)
	}
	raw, err := c.codec.Encode(value)
	if err != nil {
		return false, &EncodingError{Key: key, Err: err}
	}
	exp, err := c.codec.Encode(expected)
	if err != nil {
		return false, &EncodingError{Key: key, Err: err}
	}
	sk := c.storageKey(key)
	defer c.nearDel(sk)
	ok, err = c.scripts.ReplaceIfEqual(ctx, sk, raw, exp, ttl)
	if err != nil {
		return false, c.storeErr("replace_if_equals", sk, err)
	}
	return ok, nil
}

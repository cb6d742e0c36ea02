package casredis

import (
	"context"
	"time"
)

// Add stores value under key, overwriting any previous value. ttl 0 applies
// Options.DefaultTTL; a negative ttl deletes the key instead and Add reports false.
func (c *Cache[V]) Add(ctx context.Context, key string, value V, ttl time.Duration) (ok bool, err error) {
	defer c.observe("add", time.Now(), &err)
	if err = checkKey(key); err != nil {
		return false, err
	}
	if c.codec.IsNil(value) {
		return false, &ArgumentError{Param: "value", Reason: "must not be nil"}
	}
	return c.set(ctx, "add", key, value, ttl)
}

// Replace is an upsert with the same expiry rules as Add. Unlike Add it
// accepts nil and stores the null marker.
func (c *Cache[V]) Replace(ctx context.Context, key string, value V, ttl time.Duration) (ok bool, err error) {
	defer c.observe("replace", time.Now(), &err)
	if err = checkKey(key); err != nil {
		return false, err
	}
	return c.set(ctx, "replace", key, value, ttl)
}

func (c *Cache[V]) set(ctx context.Context, op, key string, value V, ttl time.Duration) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	sk := c.storageKey(key)
	ttl, write := c.resolveTTL(ttl)
	if !write {
		c.log.Debug("negative ttl, deleting key", Fields{"key": key, "op": op})
		_, err := c.remove(ctx, sk)
		return false, err
	}
	raw, err := c.codec.Encode(value)
	if err != nil {
		return false, &EncodingError{Key: key, Err: err}
	}
	defer c.nearDel(sk)
	if err := c.rdb.Set(ctx, sk, raw, ttl).Err(); err != nil {
		return false, c.storeErr(op, sk, err)
	}
	return true, nil
}

package casredis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/casredis/codec"
	"github.com/unkn0wn-root/casredis/internal/keys"
	"github.com/unkn0wn-root/casredis/internal/wire"
	"github.com/unkn0wn-root/casredis/near"
	"github.com/unkn0wn-root/casredis/scripts"
)

// Client is safe for concurrent use.
type Client struct {
	rdb         redis.UniversalClient
	closeClient bool
	enabled     bool
	prefix      string
	defaultTTL  time.Duration
	ser         codec.Serializer
	log         Logger
	hooks       Hooks
	near        near.Cache
	nearTTL     time.Duration
	nearGen     atomic.Uint64 // bumped by every near invalidation
	scripts     *scripts.Registry

	closeOnce sync.Once
	closeErr  error
}

func New(opts Options) (*Client, error) {
	if opts.Client == nil && !opts.Disabled {
		return nil, ErrNilClient
	}
	if opts.DefaultTTL < 0 {
		return nil, &ArgumentError{Param: "DefaultTTL", Reason: "must not be negative"}
	}

	c := &Client{
		rdb:         opts.Client,
		closeClient: opts.CloseClient,
		enabled:     !opts.Disabled,
		prefix:      opts.Prefix,
		near:        opts.Near,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.ser = coalesce[codec.Serializer](opts.Serializer, codec.JSON{})
	c.defaultTTL = coalesce(opts.DefaultTTL, fallbackTTL)
	c.nearTTL = coalesce(opts.NearTTL, defaultNearTTL)

	if c.rdb != nil {
		c.scripts = scripts.NewRegistry(c.rdb, scripts.Options{
			OnLoaded: c.scriptsLoaded,
			OnReset:  c.scriptsReset,
		})
	}
	return c, nil
}

func (c *Client) Enabled() bool { return c.enabled }

// Close releases the near cache and, when CloseClient was set, the redis client.
// Safe to call multiple times; later calls return the first result.
func (c *Client) Close(context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.near != nil {
			errs = append(errs, c.near.Close())
		}
		if c.closeClient && c.rdb != nil {
			if err := c.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// Remove deletes key and reports whether it existed.
func (c *Client) Remove(ctx context.Context, key string) (removed bool, err error) {
	defer c.observe("remove", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return false, err
	}
	return c.remove(ctx, c.storageKey(key))
}

func (c *Client) remove(ctx context.Context, sk string) (bool, error) {
	defer c.nearDel(sk)
	n, err := c.rdb.Del(ctx, sk).Result()
	if err != nil {
		return false, c.storeErr("remove", sk, err)
	}
	return n > 0, nil
}

func (c *Client) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer c.observe("exists", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return false, err
	}
	sk := c.storageKey(key)
	n, err := c.rdb.Exists(ctx, sk).Result()
	if err != nil {
		return false, c.storeErr("exists", sk, err)
	}
	return n > 0, nil
}

// GetExpiration returns the remaining TTL of key. ok is false when the key
// is absent or has no expiry; the two are not distinguished.
func (c *Client) GetExpiration(ctx context.Context, key string) (ttl time.Duration, ok bool, err error) {
	defer c.observe("get_expiration", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return 0, false, err
	}
	sk := c.storageKey(key)
	d, err := c.rdb.PTTL(ctx, sk).Result()
	if err != nil {
		return 0, false, c.storeErr("get_expiration", sk, err)
	}
	if d < 0 {
		// -1 no expiry, -2 missing
		return 0, false, nil
	}
	return d, true, nil
}

// SetExpiration replaces the TTL of an existing key and reports whether it
// was applied. A negative ttl deletes the key and reports whether it existed;
// zero expires it immediately.
func (c *Client) SetExpiration(ctx context.Context, key string, ttl time.Duration) (ok bool, err error) {
	defer c.observe("set_expiration", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return false, err
	}
	sk := c.storageKey(key)
	if ttl < 0 {
		c.log.Debug("negative ttl, deleting key", Fields{"key": key, "ttl": ttl})
		return c.remove(ctx, sk)
	}
	defer c.nearDel(sk)
	ok, err = c.rdb.PExpire(ctx, sk, ttl).Result()
	if err != nil {
		return false, c.storeErr("set_expiration", sk, err)
	}
	return ok, nil
}

// ResetScripts drops the loaded CAS script handles; the next CAS call reloads
// them. Call it after a topology change the client cannot observe.
func (c *Client) ResetScripts() {
	if c.scripts != nil {
		c.scripts.Reset("manual")
	}
}

// resolveTTL applies the write expiry rule: 0 => default, negative => delete.
func (c *Client) resolveTTL(ttl time.Duration) (time.Duration, bool) {
	if ttl < 0 {
		return 0, false
	}
	return coalesce(ttl, c.defaultTTL), true
}

func (c *Client) storageKey(key string) string { return keys.Storage(c.prefix, key) }

// userKey strips the prefix for logs and hooks.
func (c *Client) userKey(sk string) string { return sk[len(c.prefix):] }

func (c *Client) storeErr(op, sk string, err error) error {
	if sk != "" {
		sk = c.userKey(sk)
	}
	return &StoreError{Op: op, Key: sk, Err: err}
}

func (c *Client) observe(op string, start time.Time, err *error) {
	c.hooks.Op(op, time.Since(start), *err)
}

// multiShard reports whether keys of one command may live on different nodes.
func (c *Client) multiShard() bool {
	_, single := c.rdb.(*redis.Client)
	return !single
}

func (c *Client) nearGet(sk string) ([]byte, bool) {
	if c.near == nil {
		return nil, false
	}
	e, ok := c.near.Get(sk)
	if !ok {
		return nil, false
	}
	return wire.Unstamp(time.Now(), e)
}

// nearSet caches raw for at most NearTTL and never past the key's remaining
// TTL in Redis (pttl as returned by PTTL: -1 no expiry, -2 missing). gen is
// nearGen read before Redis was queried; if an invalidation ran since, the
// value may predate it and the entry is dropped again.
func (c *Client) nearSet(sk string, raw []byte, pttl time.Duration, gen uint64) {
	if c.near == nil {
		return
	}
	ttl := c.nearTTL
	switch {
	case pttl == noExpiry:
	case pttl <= 0:
		return
	case pttl < ttl:
		ttl = pttl
	}
	c.near.Set(sk, wire.Stamp(time.Now().Add(ttl), raw), ttl)
	if c.nearGen.Load() != gen {
		c.near.Del(sk)
	}
}

// nearDel must run after the store write it invalidates.
func (c *Client) nearDel(sks ...string) {
	if c.near == nil {
		return
	}
	c.nearGen.Add(1)
	for _, sk := range sks {
		c.near.Del(sk)
	}
}

func (c *Client) scriptsLoaded(primaries int) {
	c.log.Info("cas scripts loaded", Fields{"primaries": primaries})
	c.hooks.ScriptsLoaded(primaries)
}

func (c *Client) scriptsReset(reason string) {
	if reason == "noscript" {
		c.log.Warn("cas scripts missing on server, reloading", Fields{"reason": reason})
	} else {
		c.log.Info("cas scripts reset", Fields{"reason": reason})
	}
	c.hooks.ScriptsReset(reason)
}

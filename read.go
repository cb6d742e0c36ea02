package casredis

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/casredis/internal/keys"
)

// Get reads key. A miss, a stored null and an undecodable value are all
// reported through Item.State; err is only set for invalid input or store failure.
func (c *Cache[V]) Get(ctx context.Context, key string) (it Item[V], err error) {
	defer c.observe("get", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return it, err
	}
	sk := c.storageKey(key)
	if raw, ok := c.nearGet(sk); ok {
		return c.decode(key, raw), nil
	}
	if c.near == nil {
		raw, err := c.rdb.Get(ctx, sk).Bytes()
		if errors.Is(err, redis.Nil) {
			c.hooks.Read(NotFound)
			return it, nil
		}
		if err != nil {
			return it, c.storeErr("get", sk, err)
		}
		return c.decode(key, raw), nil
	}
	// the near entry must not outlive the key, so read its TTL too
	it, _, err = c.getWithTTL(ctx, key, sk)
	return it, err
}

// GetWithExpiration is Get plus the remaining TTL, read in one round trip.
// It always goes to Redis.
func (c *Cache[V]) GetWithExpiration(ctx context.Context, key string) (it Item[V], err error) {
	defer c.observe("get", time.Now(), &err)
	if err = checkKey(key); err != nil || !c.enabled {
		return it, err
	}
	it, pttl, err := c.getWithTTL(ctx, key, c.storageKey(key))
	if err == nil && pttl > 0 && it.State != NotFound {
		it.ExpiresIn = pttl
	}
	return it, err
}

// getWithTTL pipelines GET and PTTL and refreshes the near tier.
func (c *Cache[V]) getWithTTL(ctx context.Context, key, sk string) (Item[V], time.Duration, error) {
	var (
		it   Item[V]
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	gen := c.nearGen.Load()
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, sk)
		pttl = p.PTTL(ctx, sk)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return it, 0, c.storeErr("get", sk, err)
	}
	raw, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		c.hooks.Read(NotFound)
		return it, 0, nil
	}
	if err != nil {
		return it, 0, c.storeErr("get", sk, err)
	}
	c.nearSet(sk, raw, pttl.Val(), gen)
	return c.decode(key, raw), pttl.Val(), nil
}

// GetAll reads every key in one batch. The result has an entry for each
// distinct key, including misses.
func (c *Cache[V]) GetAll(ctx context.Context, ks []string) (out map[string]Item[V], err error) {
	defer c.observe("get_all", time.Now(), &err)
	if err = checkKeys(ks); err != nil {
		return nil, err
	}
	out = make(map[string]Item[V], len(ks))
	if !c.enabled {
		for _, k := range ks {
			out[k] = Item[V]{}
		}
		return out, nil
	}

	var pending []string
	for _, k := range ks {
		if _, seen := out[k]; seen {
			continue
		}
		if raw, ok := c.nearGet(c.storageKey(k)); ok {
			out[k] = c.decode(k, raw)
			continue
		}
		out[k] = Item[V]{}
		pending = append(pending, k)
	}
	if len(pending) == 0 {
		return out, nil
	}

	gen := c.nearGen.Load()
	raws, err := c.fetchMany(ctx, pending)
	if err != nil {
		return nil, err
	}
	for i, k := range pending {
		if !raws[i].ok {
			c.hooks.Read(NotFound)
			continue
		}
		c.nearSet(c.storageKey(k), raws[i].b, raws[i].pttl, gen)
		out[k] = c.decode(k, raws[i].b)
	}
	return out, nil
}

type rawValue struct {
	b    []byte
	ok   bool
	pttl time.Duration // only read when a near tier is configured
}

// fetchMany returns the raw value of every key in order. A single node
// gets one MGET; ring and cluster clients get a pipeline of GETs so go-redis
// can route each key to its own shard. With a near tier each key's PTTL
// rides along in the same pipeline.
func (c *Client) fetchMany(ctx context.Context, ks []string) ([]rawValue, error) {
	sks := keys.StorageAll(c.prefix, ks)
	out := make([]rawValue, len(ks))
	var ttls []*redis.DurationCmd
	if c.near != nil {
		ttls = make([]*redis.DurationCmd, len(sks))
	}
	queueTTLs := func(p redis.Pipeliner) {
		for i := range ttls {
			ttls[i] = p.PTTL(ctx, sks[i])
		}
	}

	if !c.multiShard() {
		var mget *redis.SliceCmd
		_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			mget = p.MGet(ctx, sks...)
			queueTTLs(p)
			return nil
		})
		if err != nil {
			return nil, c.storeErr("get_all", "", err)
		}
		for i, v := range mget.Val() {
			switch vv := v.(type) {
			case nil:
			case string:
				out[i] = rawValue{b: []byte(vv), ok: true}
			default:
				return nil, c.storeErr("get_all", sks[i], fmt.Errorf("unexpected MGET reply %T", v))
			}
		}
		fillTTLs(out, ttls)
		return out, nil
	}

	cmds := make([]*redis.StringCmd, len(sks))
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, sk := range sks {
			cmds[i] = p.Get(ctx, sk)
		}
		queueTTLs(p)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, c.storeErr("get_all", "", err)
	}
	for i, cmd := range cmds {
		b, err := cmd.Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return nil, c.storeErr("get_all", sks[i], err)
		default:
			out[i] = rawValue{b: b, ok: true}
		}
	}
	fillTTLs(out, ttls)
	return out, nil
}

func fillTTLs(out []rawValue, ttls []*redis.DurationCmd) {
	for i, cmd := range ttls {
		out[i].pttl = cmd.Val()
	}
}

// decode turns a present wire value into an Item. Decode failures degrade to
// a miss so speculative reads stay safe.
func (c *Cache[V]) decode(key string, raw []byte) Item[V] {
	v, null, err := c.codec.Decode(raw)
	var it Item[V]
	switch {
	case err != nil:
		c.log.Warn("cached value decode failed, treating as miss", Fields{
			"key": key, "type": reflect.TypeOf((*V)(nil)).Elem().String(), "err": err,
		})
		c.hooks.DecodeFailed(key, err)
		it.State = NotFound
	case null:
		it.State = FoundNull
	default:
		it.Value, it.State = v, Found
	}
	c.hooks.Read(it.State)
	return it
}

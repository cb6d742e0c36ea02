package near

import (
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"
)

type Ristretto struct {
	c *rc.Cache
}

type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultRistrettoConfig sizes the cache for roughly 64MiB of values.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{NumCounters: 1e6, MaxCost: 64 << 20, BufferItems: 64}
}

func NewRistretto(cfg RistrettoConfig) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("near: invalid ristretto config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{c: c}, nil
}

func (r *Ristretto) Get(key string) ([]byte, bool) {
	v, ok := r.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		r.c.Del(key)
		return nil, false
	}
	return b, true
}

// Set is buffered by ristretto; call Wait to make it visible immediately.
func (r *Ristretto) Set(key string, value []byte, ttl time.Duration) {
	r.c.SetWithTTL(key, value, int64(len(value))+1, ttl)
}

func (r *Ristretto) Wait() { r.c.Wait() }

func (r *Ristretto) Del(key string) { r.c.Del(key) }

func (r *Ristretto) Clear() { r.c.Clear() }

func (r *Ristretto) Close() error {
	r.c.Wait()
	r.c.Close()
	return nil
}

func (r *Ristretto) Metrics() *rc.Metrics { return r.c.Metrics }

package near

import (
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"
)

// BigCache has no per-entry TTL; every entry lives for LifeWindow.
type BigCache struct {
	c *bc.BigCache
}

type BigCacheConfig struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // 0 = unlimited
}

func NewBigCache(cfg BigCacheConfig) (*BigCache, error) {
	if cfg.LifeWindow <= 0 {
		return nil, errors.New("near: bigcache LifeWindow must be positive")
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c}, nil
}

func (b *BigCache) Get(key string) ([]byte, bool) {
	v, err := b.c.Get(key)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (b *BigCache) Set(key string, value []byte, _ time.Duration) {
	// only fails for entries larger than a shard
	_ = b.c.Set(key, value)
}

func (b *BigCache) Del(key string) {
	_ = b.c.Delete(key)
}

func (b *BigCache) Clear() { _ = b.c.Reset() }

func (b *BigCache) Close() error { return b.c.Close() }

// Package config binds casredis settings from a yaml file, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/casredis"
	"github.com/unkn0wn-root/casredis/codec"
	"github.com/unkn0wn-root/casredis/near"
)

// EnvPrefix namespaces environment overrides: CASREDIS_REDIS_ADDRS, CASREDIS_LOG_LEVEL, ...
const EnvPrefix = "CASREDIS"

type Config struct {
	Cache Cache `mapstructure:"cache"`
	Redis Redis `mapstructure:"redis"`
	Log   Log   `mapstructure:"log"`
}

type Cache struct {
	Enabled    bool          `mapstructure:"enabled"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	Prefix     string        `mapstructure:"prefix"`
	Serializer string        `mapstructure:"serializer"` // json, msgpack, cbor, protobuf
	Near       Near          `mapstructure:"near"`
}

type Near struct {
	Kind      string        `mapstructure:"kind"` // "", ristretto, bigcache
	TTL       time.Duration `mapstructure:"ttl"`
	MaxSizeMB int           `mapstructure:"max_size_mb"`
}

// Redis describes the endpoint. One address is a single node, several are a
// cluster, and MasterName selects sentinel failover over the given sentinels.
type Redis struct {
	Addrs        []string      `mapstructure:"addrs"`
	MasterName   string        `mapstructure:"master_name"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	ReadOnly     bool          `mapstructure:"read_only"` // cluster: serve reads from replicas
	PoolSize     int           `mapstructure:"pool_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads path when given, otherwise casredis.yaml from . or ./config.
// A missing search-path file is not an error; env and defaults still apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("casredis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.default_ttl", time.Minute)
	v.SetDefault("cache.prefix", "")
	v.SetDefault("cache.serializer", "json")
	v.SetDefault("cache.near.kind", "")
	v.SetDefault("cache.near.ttl", 5*time.Second)
	v.SetDefault("cache.near.max_size_mb", 64)

	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.master_name", "")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.read_only", false)
	v.SetDefault("redis.pool_size", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func (c *Config) Validate() error {
	if len(c.Redis.Addrs) == 0 {
		return errors.New("config: redis.addrs is empty")
	}
	for _, a := range c.Redis.Addrs {
		if strings.TrimSpace(a) == "" {
			return errors.New("config: redis.addrs contains an empty address")
		}
	}
	if c.Redis.DB != 0 && len(c.Redis.Addrs) > 1 && c.Redis.MasterName == "" {
		return errors.New("config: redis.db must be 0 for cluster connections")
	}
	if c.Cache.DefaultTTL < 0 {
		return errors.New("config: cache.default_ttl must not be negative")
	}
	if _, err := serializer(c.Cache.Serializer); err != nil {
		return err
	}
	switch c.Cache.Near.Kind {
	case "", "ristretto", "bigcache":
	default:
		return fmt.Errorf("config: unknown cache.near.kind %q", c.Cache.Near.Kind)
	}
	return nil
}

func (r Redis) UniversalOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        r.Addrs,
		MasterName:   r.MasterName,
		Username:     r.Username,
		Password:     r.Password,
		DB:           r.DB,
		ReadOnly:     r.ReadOnly,
		PoolSize:     r.PoolSize,
		MaxRetries:   r.MaxRetries,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
}

// NewRedisClient returns a *redis.Client, *redis.ClusterClient or sentinel
// failover client depending on the endpoint shape.
func NewRedisClient(r Redis) (redis.UniversalClient, error) {
	if len(r.Addrs) == 0 {
		return nil, errors.New("config: redis.addrs is empty")
	}
	return redis.NewUniversalClient(r.UniversalOptions()), nil
}

// Options builds casredis.Options for client. The returned near cache, if
// any, is owned by the casredis.Client and closed with it.
func (c Cache) Options(client redis.UniversalClient, logger casredis.Logger) (casredis.Options, error) {
	ser, err := serializer(c.Serializer)
	if err != nil {
		return casredis.Options{}, err
	}
	opts := casredis.Options{
		Client:     client,
		Disabled:   !c.Enabled,
		DefaultTTL: c.DefaultTTL,
		Prefix:     c.Prefix,
		Serializer: ser,
		Logger:     logger,
		NearTTL:    c.Near.TTL,
	}

	size := c.Near.MaxSizeMB
	if size <= 0 {
		size = 64
	}
	switch c.Near.Kind {
	case "":
	case "ristretto":
		rc := near.DefaultRistrettoConfig()
		rc.MaxCost = int64(size) << 20
		opts.Near, err = near.NewRistretto(rc)
	case "bigcache":
		opts.Near, err = near.NewBigCache(near.BigCacheConfig{
			LifeWindow:         coalesceTTL(c.Near.TTL),
			HardMaxCacheSizeMB: size,
		})
	default:
		err = fmt.Errorf("config: unknown cache.near.kind %q", c.Near.Kind)
	}
	if err != nil {
		return casredis.Options{}, err
	}
	return opts, nil
}

func coalesceTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

func serializer(name string) (codec.Serializer, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return codec.JSON{}, nil
	case "msgpack":
		return codec.Msgpack{JSONTags: true}, nil
	case "cbor":
		return codec.NewCBOR(true)
	case "protobuf":
		return codec.Protobuf{}, nil
	}
	return nil, fmt.Errorf("config: unknown cache.serializer %q", name)
}

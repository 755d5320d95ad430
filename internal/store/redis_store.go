package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is an optional durable backend for deployments that keep charge
// point state in Redis rather than on local disk.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

// RedisConfig holds the connection settings for a RedisStore.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
// keyPrefix namespaces this charge point's keys, typically "cp:<cpId>:".
func NewRedisStore(cfg RedisConfig, keyPrefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{Client: client, Prefix: keyPrefix}, nil
}

// Get implements Store.
func (r *RedisStore) Get(key, def string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	val, err := r.Client.Get(ctx, r.Prefix+key).Result()
	if err != nil {
		return def
	}
	return val
}

// Put implements Store. Keys carry no TTL; durable settings live until
// overwritten.
func (r *RedisStore) Put(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Client.Set(ctx, r.Prefix+key, value, 0).Err()
}

// Close implements DurableStore.
func (r *RedisStore) Close() error {
	return r.Client.Close()
}

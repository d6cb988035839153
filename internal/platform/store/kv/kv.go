// Package kv provides the coordination-store seam backed by redis.
// Watermarks, leases, backfill job state, and the query cache all live here
// as flat keys with per-key TTLs.
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the minimal key/value surface components use
// implementations must treat keys atomically (single-key put/get only)
type KV interface {
	// Get returns the value and whether the key existed
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value; ttl <= 0 means no expiry
	Set(ctx context.Context, key, val string, ttl time.Duration) error

	// SetNX writes only when the key is absent; reports whether it won
	SetNX(ctx context.Context, key, val string, ttl time.Duration) (bool, error)

	// Del removes keys; missing keys are not an error
	Del(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
	Close() error
}

// Config configures the redis client
type Config struct {
	Addr     string
	DB       int
	Password string
}

// Redis implements KV over go-redis
type Redis struct {
	c *redis.Client
}

// Open connects and verifies the server is reachable
func Open(ctx context.Context, cfg Config) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("kv: empty addr")
	}
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Redis{c: c}, nil
}

// Get implements KV
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements KV
func (r *Redis) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.c.Set(ctx, key, val, ttl).Err()
}

// SetNX implements KV
func (r *Redis) SetNX(ctx context.Context, key, val string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	return r.c.SetNX(ctx, key, val, ttl).Result()
}

// Del implements KV
func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.c.Del(ctx, keys...).Err()
}

// Ping implements KV
func (r *Redis) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

// Close implements KV
func (r *Redis) Close() error { return r.c.Close() }

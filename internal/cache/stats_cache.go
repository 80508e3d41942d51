// Package cache holds short-lived read models derived from the ledger.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache keys for aggregated statistics
const (
	KeyPublicStats    = "rewear:stats:public"
	KeyDashboardStats = "rewear:stats:dashboard"
)

// StatsCache stores JSON encoded statistics. A miss is reported with
// found == false and a nil error.
type StatsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, keys ...string) error
}

// NewRedisClient creates a client and checks that the server answers
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisStatsCache keeps statistics in Redis with a fixed TTL
type RedisStatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStatsCache(client redis.Cmdable, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

func (c *RedisStatsCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}

// NopStatsCache always misses
type NopStatsCache struct{}

func (NopStatsCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

func (NopStatsCache) Set(context.Context, string, interface{}) error { return nil }

func (NopStatsCache) Invalidate(context.Context, ...string) error { return nil }

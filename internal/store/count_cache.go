package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GatewayAdmin/internal/logger"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// CountCache keeps total counts of list queries in Redis. A nil *CountCache
// or one without a client is a no-op.
type CountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCountCache(rdb *redis.Client, ttl time.Duration) *CountCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CountCache{rdb: rdb, ttl: ttl}
}

func (c *CountCache) enabled() bool {
	return c != nil && c.rdb != nil
}

// Key identifies a count query of resource by its SQL text and arguments.
func (c *CountCache) Key(resourceName, sql string, args []any) string {
	h := xxhash.New()
	_, _ = h.WriteString(sql)
	for _, a := range args {
		_, _ = fmt.Fprintf(h, "|%T:%v", a, a)
	}
	return fmt.Sprintf("count:%s:%016x", resourceName, h.Sum64())
}

func (c *CountCache) Get(ctx context.Context, key string) (int64, bool) {
	if !c.enabled() {
		return 0, false
	}
	n, err := c.rdb.Get(ctx, key).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("count_cache_get_failed", map[string]any{"key": key, "error": err.Error()})
		}
		return 0, false
	}
	return n, true
}

func (c *CountCache) Set(ctx context.Context, key string, n int64) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Set(ctx, key, n, c.ttl).Err(); err != nil {
		logger.Warn("count_cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// Flush removes every cached count of resourceName.
func (c *CountCache) Flush(ctx context.Context, resourceName string) error {
	if !c.enabled() {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, "count:"+resourceName+":*", 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	return nil
}

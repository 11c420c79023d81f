// Package cache 未读通知计数缓存（cache-aside）
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCounter 未读数缓存。写路径只做失效，不做增减，避免与数据库漂移
type UnreadCounter interface {
	// Get 命中返回 (n, true, nil)
	Get(ctx context.Context, recipientID string) (int64, bool, error)
	Set(ctx context.Context, recipientID string, n int64) error
	Invalidate(ctx context.Context, recipientIDs ...string) error
}

// RedisUnreadCounter 以 Redis 字符串键存储未读数
type RedisUnreadCounter struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedisUnreadCounter(client *redis.Client, ttl time.Duration) *RedisUnreadCounter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisUnreadCounter{client: client, ttl: ttl}
}

func unreadKey(recipientID string) string {
	return fmt.Sprintf("notifications:unread:%s", recipientID)
}

func (c *RedisUnreadCounter) Get(ctx context.Context, recipientID string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, unreadKey(recipientID)).Result()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// 脏值当作未命中
		c.misses.Add(1)
		return 0, false, nil
	}
	c.hits.Add(1)
	return n, true, nil
}

func (c *RedisUnreadCounter) Set(ctx context.Context, recipientID string, n int64) error {
	return c.client.Set(ctx, unreadKey(recipientID), n, c.ttl).Err()
}

func (c *RedisUnreadCounter) Invalidate(ctx context.Context, recipientIDs ...string) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	keys := make([]string, len(recipientIDs))
	for i, id := range recipientIDs {
		keys[i] = unreadKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Stats 命中统计
func (c *RedisUnreadCounter) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// ResetStats clears recorded hit/miss counters.
func (c *RedisUnreadCounter) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats summarises cache lookups.
type Stats struct {
	Hits   int64
	Misses int64
}

// NopUnreadCounter Redis 未启用时使用，永远未命中
type NopUnreadCounter struct{}

func (NopUnreadCounter) Get(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (NopUnreadCounter) Set(context.Context, string, int64) error         { return nil }
func (NopUnreadCounter) Invalidate(context.Context, ...string) error      { return nil }

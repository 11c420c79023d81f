package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T) (*RedisUnreadCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisUnreadCounter(client, time.Minute), mr
}

func TestRedisUnreadCounter_GetSetInvalidate(t *testing.T) {
	c, mr := newCounter(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "u1", 4))
	n, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 4, n)
	assert.True(t, mr.Exists("notifications:unread:u1"))

	require.NoError(t, c.Invalidate(ctx, "u1", "u2"))
	_, ok, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, Stats{Hits: 1, Misses: 2}, c.Stats())
}

func TestRedisUnreadCounter_Expires(t *testing.T) {
	c, mr := newCounter(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", 1))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreadCounter_CorruptValueIsMiss(t *testing.T) {
	c, mr := newCounter(t)
	require.NoError(t, mr.Set("notifications:unread:u1", "nope"))

	_, ok, err := c.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreadCounter_ServerDown(t *testing.T) {
	c, mr := newCounter(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "u1")
	assert.Error(t, err)
}

package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *RedisCache {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCacheFromClient(client)
	t.Cleanup(func() { _ = cache.Close() })

	return cache
}

func TestRedisCacheSetGet(t *testing.T) {
	cache := setupTestRedis(t)
	ctx := testContext(t)

	require.NoError(t, cache.Ping(ctx))

	key := "test:key"
	require.NoError(t, cache.Set(ctx, key, "test-value", 10*time.Second))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "test-value", got)

	require.NoError(t, cache.Del(ctx, key))

	_, err = cache.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisCacheExists(t *testing.T) {
	cache := setupTestRedis(t)
	ctx := testContext(t)

	key := "test:exists"

	exists, err := cache.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, cache.Set(ctx, key, "v", 10*time.Second))

	exists, err = cache.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisCacheKeys(t *testing.T) {
	cache := setupTestRedis(t)
	ctx := testContext(t)

	require.NoError(t, cache.Set(ctx, "leaderboard:10", "a", time.Minute))
	require.NoError(t, cache.Set(ctx, "leaderboard:50", "b", time.Minute))
	require.NoError(t, cache.Set(ctx, "other", "c", time.Minute))

	keys, err := cache.Keys(ctx, "leaderboard:*")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

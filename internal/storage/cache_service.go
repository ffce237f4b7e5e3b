package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService provides the leaderboard read cache. Every state-mutating
// operation invalidates it, so a stale board lives at most one TTL.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

const leaderboardKeyPrefix = "leaderboard"

// LeaderboardKey generates the cache key for a top-N leaderboard query.
// Format: leaderboard:<limit>
func (c *CacheService) LeaderboardKey(limit int) string {
	return fmt.Sprintf("%s:%d", leaderboardKeyPrefix, limit)
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redis.Set(ctx, key, data, c.ttl)
}

// Get retrieves a value from cache and deserializes it. A missing key is a
// cache miss, not an error.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidateLeaderboard removes all cached leaderboard windows
func (c *CacheService) InvalidateLeaderboard(ctx context.Context) error {
	keys, err := c.redis.Keys(ctx, leaderboardKeyPrefix+":*")
	if err != nil {
		return fmt.Errorf("failed to find leaderboard keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	return c.redis.Del(ctx, keys...)
}

// GetTTL returns the configured TTL
func (c *CacheService) GetTTL() time.Duration {
	return c.ttl
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache is a Redis implementation of the CacheRepository interface.
// Entries are hashes that expire through Redis TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, opts *redis.Options, prefix string, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheWithClient(client, prefix, logger), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Get retrieves a cached vector
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	fields, err := c.client.HGetAll(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	vector, err := decodeVector([]byte(fields["vector"]))
	if err != nil {
		return nil, err
	}
	created, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	expires, _ := strconv.ParseInt(fields["expires_at"], 10, 64)

	return &core.CacheEntry{
		Key:       key,
		Model:     fields["model"],
		Vector:    vector,
		CreatedAt: time.Unix(created, 0),
		ExpiresAt: time.Unix(expires, 0),
	}, nil
}

// Set stores a cache entry with a TTL matching its expiry
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	redisKey := c.prefix + entry.Key
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey,
			"model", entry.Model,
			"vector", encodeVector(entry.Vector),
			"created_at", entry.CreatedAt.Unix(),
			"expires_at", entry.ExpiresAt.Unix())
		pipe.Expire(ctx, redisKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires keys on its own
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements ResultCache on a shared Redis instance, for
// deployments that want cache coherency across horizontally scaled replicas.
// All failures degrade to misses; Redis being down never fails a request.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache creates a RedisCache on the given client.
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Get returns the payload for key, treating any Redis error as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "redis cache get failed",
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	return payload, true
}

// Put stores payload under key for ttl, logging and dropping on failure.
func (c *RedisCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "redis cache put failed",
			slog.String("error", err.Error()),
		)
	}
}

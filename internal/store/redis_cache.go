package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

// RedisCache is a Redis implementation of shortener.Cache.
type RedisCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCache creates a new Redis-backed link cache.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "url:",
	}
}

func (r *RedisCache) Get(ctx context.Context, code shortener.Code) (string, bool, error) {
	url, err := r.client.Get(ctx, r.prefix+string(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, err
	}

	return url, true, nil
}

func (r *RedisCache) Set(ctx context.Context, code shortener.Code, url string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+string(code), url, ttl).Err()
}

// Shutdown is a no-op for RedisCache (client managed externally).
func (r *RedisCache) Shutdown() error {
	return nil
}

// Compile-time check.
var _ shortener.Cache = (*RedisCache)(nil)

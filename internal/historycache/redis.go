package historycache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache adapts a *redis.Client to the ExternalCache interface,
// grounded on the go-redis/v9 client used across the retrieved dependency
// pack for exactly this kind of keyed-list-with-TTL cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache parses cacheURL (a redis:// URL) and returns a ready client.
func NewRedisCache(cacheURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(cacheURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (r *RedisCache) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return r.client.LPush(ctx, key, args...).Err()
}

func (r *RedisCache) LTrim(ctx context.Context, key string, start, stop int64) error {
	return r.client.LTrim(ctx, key, start, stop).Err()
}

func (r *RedisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, key, start, stop).Result()
}

func (r *RedisCache) Expire(ctx context.Context, key string, ttlSeconds int) error {
	return r.client.Expire(ctx, key, time.Duration(ttlSeconds)*time.Second).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

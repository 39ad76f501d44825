package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache shares a Daraja bearer token between service instances. A cache
// failure is never fatal; callers fall back to fetching a fresh token.
type TokenCache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context) error
}

const tokenKey = "mpesa:access_token"

type RedisTokenCache struct {
	client *redis.Client
}

func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

// Get returns the cached token, or "" on a miss.
func (c *RedisTokenCache) Get(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKey, token, ttl).Err()
}

func (c *RedisTokenCache) Delete(ctx context.Context) error {
	return c.client.Del(ctx, tokenKey).Err()
}

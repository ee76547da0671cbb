package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xelth-com/mprgo/internal/config"
)

const cacheKeyPrefix = "mpr:identity:"

// RedisCache keeps resolved callers in redis for a fixed TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis. It returns (nil, nil) when no address is
// configured so callers can run without a cache.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, userID string) (Caller, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Caller{}, false, nil
	}
	if err != nil {
		return Caller{}, false, err
	}

	var caller Caller
	if err := json.Unmarshal(raw, &caller); err != nil {
		return Caller{}, false, err
	}
	return caller, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, caller Caller) error {
	raw, err := json.Marshal(caller)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+userID, raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, cacheKeyPrefix+userID).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

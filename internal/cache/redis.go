package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbaumgartner/flipradar/internal/config"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

const keyPrefix = "flipradar:estimate:"

// RedisCache is a PriceCache backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

// Get fetches the cached estimate for an identity key.
func (c *RedisCache) Get(ctx context.Context, identityKey string) (domain.PriceEstimate, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+identityKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PriceEstimate{}, false, nil
	}
	if err != nil {
		return domain.PriceEstimate{}, false, fmt.Errorf("reading estimate from redis: %w", err)
	}

	var est domain.PriceEstimate
	if err := json.Unmarshal(data, &est); err != nil {
		return domain.PriceEstimate{}, false, fmt.Errorf("decoding cached estimate: %w", err)
	}
	return est, true, nil
}

// Set stores an estimate with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, identityKey string, estimate domain.PriceEstimate) error {
	data, err := json.Marshal(estimate)
	if err != nil {
		return fmt.Errorf("encoding estimate: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+identityKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing estimate to redis: %w", err)
	}
	return nil
}

// Delete removes a cached estimate.
func (c *RedisCache) Delete(ctx context.Context, identityKey string) error {
	if err := c.client.Del(ctx, keyPrefix+identityKey).Err(); err != nil {
		return fmt.Errorf("deleting estimate from redis: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

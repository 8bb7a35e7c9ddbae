package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisCache shares prices between instances. Keys live under the data
// namespace so several deployments can use one server.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

func NewRedisCache(client *redis.Client, namespace string) *RedisCache {
	return &RedisCache{client: client, namespace: namespace}
}

func (c *RedisCache) key(jurisdiction string) string {
	return fmt.Sprintf("%s:price:%s", c.namespace, jurisdiction)
}

func (c *RedisCache) Get(ctx context.Context, jurisdiction string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, c.key(jurisdiction)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get price from cache: %w", err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse cached price: %w", err)
	}
	return price, true, nil
}

func (c *RedisCache) Set(ctx context.Context, jurisdiction string, price decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(jurisdiction), price.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store price in cache: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cristianortiz/gridshare/internal/price/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseCache(t *testing.T, c domain.PriceCache) {
	ctx := context.Background()
	_, ok, err := c.Get(ctx, "AB")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "AB", decimal.RequireFromString("0.0984"), time.Minute))
	got, ok, err := c.Get(ctx, "AB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.0984", got.String())
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	exerciseCache(t, c)

	now := time.Now()
	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok, err := c.Get(context.Background(), "AB")
	require.NoError(t, err)
	assert.False(t, ok, "entry expired")
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ns := "gridshare_test_" + time.Now().Format("150405.000000")
	t.Cleanup(func() { client.Del(context.Background(), ns+":price:AB") })

	exerciseCache(t, NewRedisCache(client, ns))
}

func TestRedisKeyNamespace(t *testing.T) {
	c := NewRedisCache(nil, "tenant_a")
	assert.Equal(t, "tenant_a:price:CA", c.key("CA"))
}

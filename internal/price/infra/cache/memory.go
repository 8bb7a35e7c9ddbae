package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type entry struct {
	price   decimal.Decimal
	expires time.Time
}

// MemoryCache is used when no REDIS_ADDR is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, jurisdiction string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[jurisdiction]
	if !ok {
		return decimal.Zero, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, jurisdiction)
		return decimal.Zero, false, nil
	}
	return e.price, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, jurisdiction string, price decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[jurisdiction] = entry{price: price, expires: c.now().Add(ttl)}
	return nil
}

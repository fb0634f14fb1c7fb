package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	"github.com/angelmondragon/groupcart-backend/pkg/redis"
)

// DefaultCacheTTL applies when no TTL is configured.
const DefaultCacheTTL = 7 * 24 * time.Hour

type cacheBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(cartID string) string
}

// Cache keeps JSON snapshots of carts. Failures are logged and counted but never
// returned: the durable store stays authoritative. A nil *Cache always misses.
type Cache struct {
	backend cacheBackend
	ttl     time.Duration
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

func NewCache(backend cacheBackend, ttl time.Duration, logg *logger.Logger, m *metrics.CartMetrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Cache{backend: backend, ttl: ttl, logg: logg, metrics: m}
}

// Get returns the cached cart and true, or false on a miss or any cache failure.
func (c *Cache) Get(ctx context.Context, cartID string) (*Cart, bool) {
	if c == nil || c.backend == nil {
		return nil, false
	}
	key := c.backend.CartKey(cartID)

	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			c.fail(ctx, "get", cartID, err)
		}
		c.metrics.CacheMiss()
		return nil, false
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil || cart.ID != cartID {
		if err == nil {
			err = fmt.Errorf("cached cart id %q does not match key", cart.ID)
		}
		c.fail(ctx, "decode", cartID, err)
		c.Delete(ctx, cartID)
		c.metrics.CacheMiss()
		return nil, false
	}
	if cart.Items == nil {
		cart.Items = []Item{}
	}

	c.metrics.CacheHit()
	return &cart, true
}

// Put writes the cart with a fresh TTL. When the write fails the stale entry is
// dropped so later reads fall back to the durable store.
func (c *Cache) Put(ctx context.Context, cart *Cart) {
	if c == nil || c.backend == nil || cart == nil {
		return
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		c.fail(ctx, "encode", cart.ID, err)
		return
	}
	if err := c.backend.Set(ctx, c.backend.CartKey(cart.ID), payload, c.ttl); err != nil {
		c.fail(ctx, "put", cart.ID, err)
		c.Delete(ctx, cart.ID)
	}
}

// Delete evicts the given carts.
func (c *Cache) Delete(ctx context.Context, cartIDs ...string) {
	if c == nil || c.backend == nil || len(cartIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(cartIDs))
	for _, id := range cartIDs {
		keys = append(keys, c.backend.CartKey(id))
	}
	if err := c.backend.Del(ctx, keys...); err != nil {
		for _, id := range cartIDs {
			c.fail(ctx, "delete", id, err)
		}
	}
}

func (c *Cache) fail(ctx context.Context, op, cartID string, err error) {
	c.metrics.CacheError(op)
	c.logg.WarnErr(c.logg.WithFields(ctx, map[string]any{"cart_id": cartID, "cache_op": op}), "cart cache unavailable", err)
}

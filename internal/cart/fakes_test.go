package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/groupcart-backend/internal/catalog"
	"github.com/angelmondragon/groupcart-backend/internal/grouporders"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/redis"
	"gorm.io/gorm"
)

type memoryRepo struct {
	mu        sync.Mutex
	carts     map[string]*Cart
	loads     int
	loadErr   error
	upsertErr error
	deleteErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{carts: map[string]*Cart{}}
}

func (r *memoryRepo) WithTx(*gorm.DB) CartRepository { return r }

func (r *memoryRepo) LoadByIdentity(_ context.Context, id Identity) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	stored, ok := r.carts[id.CartID()]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cloneCart(stored), nil
}

func (r *memoryRepo) Upsert(_ context.Context, cart *Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	existing, ok := r.carts[cart.ID]
	switch {
	case ok && cart.Version == 0:
		return errors.New("UNIQUE constraint failed: carts.cart_key")
	case ok && existing.Version != cart.Version:
		return ErrVersionConflict
	}
	cart.Version++
	r.carts[cart.ID] = cloneCart(cart)
	return nil
}

func (r *memoryRepo) DeleteByIdentity(_ context.Context, id Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.carts, id.CartID())
	return nil
}

func (r *memoryRepo) stored(cartID string) (*Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil, false
	}
	return cloneCart(c), true
}

func cloneCart(c *Cart) *Cart {
	raw, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}
	var out Cart
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (r *memoryRepo) snapshot() map[string]*Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Cart, len(r.carts))
	for k, v := range r.carts {
		out[k] = cloneCart(v)
	}
	return out
}

func (r *memoryRepo) restore(carts map[string]*Cart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts = carts
}

// rollbackTx discards every repository write made by a failed transaction.
type rollbackTx struct {
	repo *memoryRepo
}

func (r rollbackTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	saved := r.repo.snapshot()
	if err := fn(nil); err != nil {
		r.repo.restore(saved)
		return err
	}
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memoryBackend struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	delErr  error
	getHits int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (b *memoryBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return "", b.getErr
	}
	v, ok := b.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	b.getHits++
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.setErr != nil {
		return b.setErr
	}
	switch v := value.(type) {
	case []byte:
		b.data[key] = string(v)
	case string:
		b.data[key] = v
	}
	b.ttls[key] = ttl
	return nil
}

func (b *memoryBackend) Del(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.delErr != nil {
		return b.delErr
	}
	for _, k := range keys {
		delete(b.data, k)
		delete(b.ttls, k)
	}
	return nil
}

func (b *memoryBackend) CartKey(cartID string) string {
	return "gc:cart:" + cartID
}

func (b *memoryBackend) has(cartID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[b.CartKey(cartID)]
	return ok
}

func (b *memoryBackend) wipe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = map[string]string{}
	b.ttls = map[string]time.Duration{}
}

type stubCatalog struct {
	products map[string]*catalog.Product
	err      error
}

func (c *stubCatalog) GetProduct(_ context.Context, productID string) (*catalog.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

type stubGroupOrders struct {
	expiries map[string]time.Time
}

func (g *stubGroupOrders) GetExpiry(_ context.Context, groupOrderID string) (time.Time, error) {
	t, ok := g.expiries[groupOrderID]
	if !ok {
		return time.Time{}, grouporders.ErrGroupOrderNotFound
	}
	return t, nil
}

type testHarness struct {
	svc      *service
	repo     *memoryRepo
	backend  *memoryBackend
	catalog  *stubCatalog
	expiries *stubGroupOrders
}

var (
	testNow      = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	testDeadline = time.Date(2026, 10, 20, 18, 0, 0, 0, time.UTC)
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		repo:    newMemoryRepo(),
		backend: newMemoryBackend(),
		catalog: &stubCatalog{products: map[string]*catalog.Product{
			"p-rice": {
				ID: "p-rice", Name: "Basmati Rice", Slug: "basmati-rice", Unit: "kg", UnitSize: "5",
				CategoryID: "staples", CategoryName: "Staples",
				MRPCents: 120000, SellingPriceCents: 99000, MinOrderQty: 1, IsActive: true,
			},
			"p-mango": {
				ID: "p-mango", Name: "Alphonso Mango", Slug: "alphonso-mango", Unit: "dozen",
				MRPCents: 90000, SellingPriceCents: 72000, MinOrderQty: 2, MaxOrderQty: intPtr(5), IsActive: true,
			},
			"p-ghee": {
				ID: "p-ghee", Name: "Cow Ghee", Slug: "cow-ghee", MRPCents: 65000, SellingPriceCents: 60000,
				MinOrderQty: 1, IsActive: false,
			},
		}},
		expiries: &stubGroupOrders{expiries: map[string]time.Time{"go-1": testDeadline}},
	}

	cache := NewCache(h.backend, time.Hour, logger.Nop(), nil)
	svc, err := NewService(h.repo, passthroughTx{}, cache, h.catalog, h.expiries, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc.(*service)
	h.svc.now = func() time.Time { return testNow }
	return h
}

func assertTotalsInvariant(t *testing.T, cart *Cart) {
	t.Helper()
	want := ComputeTotals(cart.Items)
	if cart.TotalItems != want.TotalItems ||
		cart.SubtotalCents != want.SubtotalCents ||
		cart.TotalDiscountCents != want.TotalDiscountCents ||
		cart.TotalAmountCents != want.TotalAmountCents {
		t.Fatalf("cart totals out of sync with items: got %+v want %+v", cart, want)
	}
	if cart.SubtotalCents-cart.TotalDiscountCents != cart.TotalAmountCents {
		t.Fatalf("subtotal - discount != total: %d - %d != %d", cart.SubtotalCents, cart.TotalDiscountCents, cart.TotalAmountCents)
	}
	qty := 0
	for _, item := range cart.Items {
		qty += item.Quantity
	}
	if cart.TotalItems != qty {
		t.Fatalf("expected total items %d, got %d", qty, cart.TotalItems)
	}
}

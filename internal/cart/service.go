package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/groupcart-backend/internal/catalog"
	"github.com/angelmondragon/groupcart-backend/internal/grouporders"
	"github.com/angelmondragon/groupcart-backend/pkg/db"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	opGetCart    = "get_cart"
	opAddItem    = "add_item"
	opUpdateItem = "update_item"
	opRemoveItem = "remove_item"
	opClearCart  = "clear_cart"
	opMerge      = "merge"
)

// Service exposes the cart operations. Every mutation re-derives totals and is
// committed to the durable store before the cache is refreshed.
type Service interface {
	GetOrCreateCart(ctx context.Context, id Identity) (*Cart, error)
	AddItem(ctx context.Context, id Identity, input AddItemInput) (*Cart, error)
	UpdateItemQuantity(ctx context.Context, id Identity, itemID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, id Identity, itemID uuid.UUID) (*Cart, error)
	ClearCart(ctx context.Context, id Identity) (*Cart, error)
	MergeGuestIntoUser(ctx context.Context, guestToken, userID string) (*MergeResult, error)
}

// AddItemInput describes a line to add. GroupOrderID is required for group
// lines and forbidden for priority lines.
type AddItemInput struct {
	ProductID    string
	Quantity     int
	OrderType    enums.OrderType
	GroupOrderID *string
}

type service struct {
	repo        CartRepository
	tx          txRunner
	cache       *Cache
	products    productCatalog
	groupOrders groupOrderLookup
	logg        *logger.Logger
	metrics     *metrics.CartMetrics
	locks       *keyedLocker
	now         func() time.Time
	newID       func() uuid.UUID
}

// NewService builds a cart service backed by the provided stack. cache and
// metrics may be nil.
func NewService(
	repo CartRepository,
	tx txRunner,
	cache *Cache,
	products productCatalog,
	groupOrders groupOrderLookup,
	logg *logger.Logger,
	m *metrics.CartMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if groupOrders == nil {
		return nil, fmt.Errorf("group order lookup required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:        repo,
		tx:          tx,
		cache:       cache,
		products:    products,
		groupOrders: groupOrders,
		logg:        logg,
		metrics:     m,
		locks:       newKeyedLocker(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.New,
	}, nil
}

func (s *service) GetOrCreateCart(ctx context.Context, id Identity) (cart *Cart, err error) {
	defer s.observe(opGetCart, time.Now(), &err)
	if err := id.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id.CartID())
	defer unlock()

	return s.loadOrCreate(ctx, id)
}

func (s *service) AddItem(ctx context.Context, id Identity, input AddItemInput) (cart *Cart, err error) {
	defer s.observe(opAddItem, time.Now(), &err)
	if err := id.validate(); err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id.CartID())
	defer unlock()

	cart, err = s.loadOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	key := newItemKey(input.ProductID, input.OrderType, input.GroupOrderID)
	if idx := cart.indexOfKey(key); idx >= 0 {
		requested := cart.Items[idx].Quantity + input.Quantity
		if err := s.checkPolicy(product, requested); err != nil {
			return nil, err
		}
		cart.Items[idx].Quantity = requested
	} else {
		if err := s.checkPolicy(product, input.Quantity); err != nil {
			return nil, err
		}
		item, err := s.newItem(ctx, product, input)
		if err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}

	cart.recalculate()
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, id Identity, itemID uuid.UUID, quantity int) (cart *Cart, err error) {
	defer s.observe(opUpdateItem, time.Now(), &err)
	if err := id.validate(); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	unlock := s.locks.Lock(id.CartID())
	defer unlock()

	cart, err = s.loadOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := cart.indexOfItem(itemID)
	if idx < 0 {
		return nil, errItemNotFound()
	}

	if quantity == 0 {
		cart.removeAt(idx)
	} else {
		product, err := s.products.GetProduct(ctx, cart.Items[idx].ProductID)
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			product = nil
		case err != nil:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if err := s.checkPolicy(product, quantity); err != nil {
			return nil, err
		}
		cart.Items[idx].Quantity = quantity
	}

	cart.recalculate()
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) RemoveItem(ctx context.Context, id Identity, itemID uuid.UUID) (cart *Cart, err error) {
	defer s.observe(opRemoveItem, time.Now(), &err)
	if err := id.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id.CartID())
	defer unlock()

	cart, err = s.loadOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := cart.indexOfItem(itemID)
	if idx < 0 {
		return nil, errItemNotFound()
	}
	cart.removeAt(idx)

	cart.recalculate()
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ClearCart empties the cart; the cart itself is kept.
func (s *service) ClearCart(ctx context.Context, id Identity) (cart *Cart, err error) {
	defer s.observe(opClearCart, time.Now(), &err)
	if err := id.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id.CartID())
	defer unlock()

	cart, err = s.loadOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	cart.Items = []Item{}

	cart.recalculate()
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// loadExisting reads through the cache and repopulates it from the durable
// store on a miss. Returns ErrCartNotFound when neither holds the cart.
func (s *service) loadExisting(ctx context.Context, id Identity) (*Cart, error) {
	if cart, ok := s.cache.Get(ctx, id.CartID()); ok {
		return cart, nil
	}
	cart, err := s.repo.LoadByIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	s.cache.Put(ctx, cart)
	return cart, nil
}

func (s *service) loadOrCreate(ctx context.Context, id Identity) (*Cart, error) {
	cart, err := s.loadExisting(ctx, id)
	if err == nil || !errors.Is(err, ErrCartNotFound) {
		return cart, err
	}

	cart = newCart(id, s.newID(), s.now())
	err = s.save(ctx, cart)
	if err == nil {
		return cart, nil
	}
	// another process created the same cart first
	if db.IsUniqueViolation(err, "") {
		existing, loadErr := s.repo.LoadByIdentity(ctx, id)
		if loadErr == nil {
			s.cache.Put(ctx, existing)
			return existing, nil
		}
	}
	return nil, err
}

// save commits the cart durably, then refreshes the cache.
func (s *service) save(ctx context.Context, cart *Cart) error {
	cart.UpdatedAt = s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Upsert(ctx, cart)
	})
	if err != nil {
		return s.durableError(ctx, cart.ID, err)
	}
	s.cache.Put(ctx, cart)
	return nil
}

// durableError maps a failed durable write. A version conflict evicts the
// cached copy so a retry starts from the committed state.
func (s *service) durableError(ctx context.Context, cartID string, err error) error {
	if errors.Is(err, ErrVersionConflict) {
		s.cache.Delete(ctx, cartID)
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart was modified concurrently")
	}
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	s.logg.Error(s.logg.WithCartID(ctx, cartID), "durable cart write failed", err)
	return wrapped
}

func (s *service) loadProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) checkPolicy(product *catalog.Product, qty int) error {
	rejection := ValidateQuantity(product, qty)
	if rejection == nil {
		return nil
	}
	s.metrics.PolicyRejected(rejection.Reason.String())
	return rejection.asError()
}

func (s *service) newItem(ctx context.Context, product *catalog.Product, input AddItemInput) (Item, error) {
	item := Item{
		ID:                s.newID(),
		ProductID:         product.ID,
		Name:              product.Name,
		Slug:              product.Slug,
		ImageURL:          product.ImageURL,
		Unit:              product.Unit,
		UnitSize:          product.UnitSize,
		CategoryID:        product.CategoryID,
		CategoryName:      product.CategoryName,
		MRPCents:          product.MRPCents,
		SellingPriceCents: product.MRPCents,
		Quantity:          input.Quantity,
		MinOrderQty:       minOrderQty(product),
		MaxOrderQty:       product.MaxOrderQty,
		OrderType:         input.OrderType,
		AddedAt:           s.now(),
	}
	if input.OrderType != enums.OrderTypeGroup {
		return item, nil
	}

	expiresAt, err := s.groupOrders.GetExpiry(ctx, *input.GroupOrderID)
	if err != nil {
		if errors.Is(err, grouporders.ErrGroupOrderNotFound) {
			return Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "group order not found")
		}
		return Item{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group order")
	}
	groupOrderID := *input.GroupOrderID
	item.GroupOrderID = &groupOrderID
	item.ExpiresAt = &expiresAt
	item.SellingPriceCents = product.SellingPriceCents
	return item, nil
}

func (s *service) observe(op string, started time.Time, errp *error) {
	outcome := metrics.OutcomeSuccess
	if errp != nil && *errp != nil {
		outcome = metrics.OutcomeError
		if pkgerrors.HasCode(*errp, pkgerrors.CodePolicyRejected) {
			outcome = metrics.OutcomeRejected
		}
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(started))
}

func (in *AddItemInput) normalize() error {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if in.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if in.OrderType == "" {
		in.OrderType = enums.OrderTypePriority
	}
	if !in.OrderType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order type %q", in.OrderType))
	}

	if in.GroupOrderID != nil {
		trimmed := strings.TrimSpace(*in.GroupOrderID)
		if trimmed == "" {
			in.GroupOrderID = nil
		} else {
			in.GroupOrderID = &trimmed
		}
	}
	switch {
	case in.OrderType == enums.OrderTypeGroup && in.GroupOrderID == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "group order id is required for group items")
	case in.OrderType == enums.OrderTypePriority && in.GroupOrderID != nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "group order id is only allowed for group items")
	}
	return nil
}

func errItemNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

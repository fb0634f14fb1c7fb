package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/groupcart-backend/internal/catalog"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MergeGuestIntoUser folds the guest cart into the user's cart and disposes of
// the guest cart. The guest cart is read from the durable store only; a
// missing guest cart merges as empty, so retries are no-ops.
func (s *service) MergeGuestIntoUser(ctx context.Context, guestToken, userID string) (result *MergeResult, err error) {
	defer s.observe(opMerge, time.Now(), &err)

	guestToken = strings.TrimSpace(guestToken)
	userID = strings.TrimSpace(userID)
	if guestToken == "" || userID == "" {
		return nil, errInvalidIdentity()
	}
	guestID := GuestIdentity(guestToken)
	userIdentity := UserIdentity(userID)

	unlock := s.locks.Lock(guestID.CartID(), userIdentity.CartID())
	defer unlock()

	guest, err := s.repo.LoadByIdentity(ctx, guestID)
	switch {
	case errors.Is(err, ErrCartNotFound):
		guest = nil
		// a cached copy can outlive the durable row when an eviction failed
		s.cache.Delete(ctx, guestID.CartID())
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}

	user, err := s.loadOrCreate(ctx, userIdentity)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return &MergeResult{Cart: user}, nil
	}

	bounds, err := s.liveBounds(ctx, guest.Items)
	if err != nil {
		return nil, err
	}

	warnings := mergeItems(user, guest.Items, bounds, s.newID)
	user.recalculate()
	user.UpdatedAt = s.now()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Upsert(ctx, user); err != nil {
			return err
		}
		return repo.DeleteByIdentity(ctx, guestID)
	})
	if err != nil {
		return nil, s.durableError(ctx, user.ID, err)
	}
	s.cache.Put(ctx, user)
	s.cache.Delete(ctx, guestID.CartID())

	s.metrics.MergeClamped(countWarnings(warnings, enums.CartItemWarningTypeClampedToMax))
	logCtx := s.logg.WithFields(s.logg.WithCartID(ctx, user.ID), map[string]any{
		"guest_cart_id": guestID.CartID(),
		"merged_items":  len(guest.Items),
		"warnings":      len(warnings),
	})
	s.logg.Info(logCtx, "guest cart merged")

	return &MergeResult{Cart: user, MergedItems: len(guest.Items), Warnings: warnings}, nil
}

// productBounds is the catalog's current view of a product during a merge.
type productBounds struct {
	found  bool
	active bool
	max    *int
}

// liveBounds looks up every distinct product referenced by items.
func (s *service) liveBounds(ctx context.Context, items []Item) (map[string]productBounds, error) {
	bounds := make(map[string]productBounds, len(items))
	for _, item := range items {
		if _, seen := bounds[item.ProductID]; seen {
			continue
		}
		product, err := s.products.GetProduct(ctx, item.ProductID)
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			bounds[item.ProductID] = productBounds{}
		case err != nil:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		default:
			bounds[item.ProductID] = productBounds{found: true, active: product.IsActive, max: product.MaxOrderQty}
		}
	}
	return bounds, nil
}

// mergeItems adds incoming lines to dst by identity key. Matching lines have
// their quantities summed and clamped to the product's current maximum; new
// lines are copied under fresh ids. Products missing from bounds, or gone from
// the catalog, fall back to the maximum saved on the lines. Lines for products
// that are no longer available are kept and flagged.
func mergeItems(dst *Cart, incoming []Item, bounds map[string]productBounds, newID func() uuid.UUID) []Warning {
	var warnings []Warning
	for _, in := range incoming {
		b, known := bounds[in.ProductID]
		idx := dst.indexOfKey(in.key())
		if idx < 0 {
			line := in
			line.ID = newID()
			max := line.MaxOrderQty
			if b.found {
				max = b.max
			}
			if applied, clamped := clampToMax(line.Quantity, 1, max); clamped {
				warnings = append(warnings, clampWarning(line, line.Quantity, applied))
				line.Quantity = applied
			}
			dst.Items = append(dst.Items, line)
			if known && !(b.found && b.active) {
				warnings = append(warnings, unavailableWarning(line))
			}
			continue
		}

		line := &dst.Items[idx]
		max := line.MaxOrderQty
		if max == nil {
			max = in.MaxOrderQty
		}
		if b.found {
			max = b.max
		}
		sum := line.Quantity + in.Quantity
		applied, clamped := clampToMax(sum, line.Quantity, max)
		if clamped {
			warnings = append(warnings, clampWarning(*line, sum, applied))
		}
		line.Quantity = applied
		if known && !(b.found && b.active) {
			warnings = append(warnings, unavailableWarning(*line))
		}
	}
	return warnings
}

// clampToMax caps qty at max but never below floor.
func clampToMax(qty, floor int, max *int) (int, bool) {
	if max == nil || qty <= *max {
		return qty, false
	}
	if *max < floor {
		return floor, true
	}
	return *max, true
}

func clampWarning(line Item, requested, applied int) Warning {
	return Warning{
		Type:      enums.CartItemWarningTypeClampedToMax,
		ItemID:    line.ID,
		ProductID: line.ProductID,
		Requested: requested,
		Applied:   applied,
	}
}

func unavailableWarning(line Item) Warning {
	return Warning{
		Type:      enums.CartItemWarningTypeNotAvailable,
		ItemID:    line.ID,
		ProductID: line.ProductID,
		Requested: line.Quantity,
		Applied:   line.Quantity,
	}
}

func countWarnings(warnings []Warning, kind enums.CartItemWarningType) int {
	n := 0
	for _, w := range warnings {
		if w.Type == kind {
			n++
		}
	}
	return n
}

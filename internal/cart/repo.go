package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCartNotFound is returned when no durable cart exists for an identity.
	ErrCartNotFound = errors.New("cart not found")
	// ErrVersionConflict means another writer saved the cart since it was read.
	ErrVersionConflict = errors.New("cart version conflict")
)

// Repository persists carts and their lines with GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// LoadByIdentity reconstructs the cart with its lines in insertion order.
func (r *Repository) LoadByIdentity(ctx context.Context, id Identity) (*Cart, error) {
	var row models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("cart_key = ?", id.CartID()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return cartFromModel(row), nil
}

// Upsert replaces the cart's scalar fields and its whole item collection. The
// caller is expected to run it inside a transaction. A cart with Version 0 is
// inserted; otherwise the row is only updated when its version still matches.
// Version is bumped on success.
func (r *Repository) Upsert(ctx context.Context, cart *Cart) error {
	if cart == nil {
		return fmt.Errorf("cart is required")
	}
	if cart.RecordID == uuid.Nil {
		cart.RecordID = uuid.New()
	}
	db := r.db.WithContext(ctx)
	row := cartToModel(cart)
	row.Version = cart.Version + 1

	if cart.Version == 0 {
		if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
	} else {
		res := db.Model(&models.Cart{}).
			Where("id = ? AND version = ?", cart.RecordID, cart.Version).
			Updates(map[string]any{
				"total_items":          row.TotalItems,
				"subtotal_cents":       row.SubtotalCents,
				"total_discount_cents": row.TotalDiscountCents,
				"total_amount_cents":   row.TotalAmountCents,
				"version":              row.Version,
				"updated_at":           row.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
	}

	if err := db.Where("cart_id = ?", cart.RecordID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(row.Items) > 0 {
		if err := db.Create(&row.Items).Error; err != nil {
			return err
		}
	}

	cart.Version = row.Version
	return nil
}

// DeleteByIdentity removes the cart and its lines. Deleting a missing cart is a no-op.
func (r *Repository) DeleteByIdentity(ctx context.Context, id Identity) error {
	db := r.db.WithContext(ctx)

	var row models.Cart
	err := db.Select("id").Where("cart_key = ?", id.CartID()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := db.Where("cart_id = ?", row.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", row.ID).Delete(&models.Cart{}).Error
}

// DeleteIdleGuestCarts removes up to limit guest carts not updated since cutoff
// and returns the cart ids actually deleted. A cart written after it was
// selected is kept and left out of the result.
func (r *Repository) DeleteIdleGuestCarts(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]string, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	db = db.WithContext(ctx)

	rows, err := selectIdleGuestCarts(db, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return purgeIdleCarts(db, rows, cutoff)
}

func selectIdleGuestCarts(db *gorm.DB, cutoff time.Time, limit int) ([]models.Cart, error) {
	var rows []models.Cart
	err := db.Select("id", "cart_key").
		Where("identity_kind = ? AND updated_at < ?", enums.IdentityKindGuest, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// purgeIdleCarts deletes each selected cart that is still idle, then its lines.
func purgeIdleCarts(db *gorm.DB, rows []models.Cart, cutoff time.Time) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	deleted := make([]uuid.UUID, 0, len(rows))
	cartIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		res := db.Where("id = ? AND updated_at < ?", row.ID, cutoff).Delete(&models.Cart{})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		deleted = append(deleted, row.ID)
		cartIDs = append(cartIDs, row.CartKey)
	}
	if len(deleted) == 0 {
		return nil, nil
	}

	if err := db.Where("cart_id IN ?", deleted).Delete(&models.CartItem{}).Error; err != nil {
		return nil, err
	}
	return cartIDs, nil
}

func cartToModel(cart *Cart) models.Cart {
	kind := enums.IdentityKindGuest
	if cart.UserID != nil {
		kind = enums.IdentityKindUser
	}
	row := models.Cart{
		ID:                 cart.RecordID,
		CartKey:            cart.ID,
		IdentityKind:       kind,
		UserID:             cart.UserID,
		SessionToken:       cart.SessionToken,
		TotalItems:         cart.TotalItems,
		SubtotalCents:      cart.SubtotalCents,
		TotalDiscountCents: cart.TotalDiscountCents,
		TotalAmountCents:   cart.TotalAmountCents,
		Version:            cart.Version,
		CreatedAt:          cart.CreatedAt,
		UpdatedAt:          cart.UpdatedAt,
		Items:              make([]models.CartItem, 0, len(cart.Items)),
	}
	for i, item := range cart.Items {
		row.Items = append(row.Items, models.CartItem{
			ID:                item.ID,
			CartID:            cart.RecordID,
			Position:          i,
			ProductID:         item.ProductID,
			Name:              item.Name,
			Slug:              item.Slug,
			ImageURL:          item.ImageURL,
			Unit:              item.Unit,
			UnitSize:          item.UnitSize,
			CategoryID:        item.CategoryID,
			CategoryName:      item.CategoryName,
			MRPCents:          item.MRPCents,
			SellingPriceCents: item.SellingPriceCents,
			Quantity:          item.Quantity,
			MinOrderQty:       item.MinOrderQty,
			MaxOrderQty:       item.MaxOrderQty,
			OrderType:         item.OrderType,
			GroupOrderID:      item.GroupOrderID,
			ExpiresAt:         item.ExpiresAt,
			AddedAt:           item.AddedAt,
		})
	}
	return row
}

func cartFromModel(row models.Cart) *Cart {
	cart := &Cart{
		ID:                 row.CartKey,
		RecordID:           row.ID,
		UserID:             row.UserID,
		SessionToken:       row.SessionToken,
		TotalItems:         row.TotalItems,
		SubtotalCents:      row.SubtotalCents,
		TotalDiscountCents: row.TotalDiscountCents,
		TotalAmountCents:   row.TotalAmountCents,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
		Items:              make([]Item, 0, len(row.Items)),
	}
	for _, item := range row.Items {
		var expiresAt *time.Time
		if item.ExpiresAt != nil {
			t := item.ExpiresAt.UTC()
			expiresAt = &t
		}
		cart.Items = append(cart.Items, Item{
			ID:                item.ID,
			ProductID:         item.ProductID,
			Name:              item.Name,
			Slug:              item.Slug,
			ImageURL:          item.ImageURL,
			Unit:              item.Unit,
			UnitSize:          item.UnitSize,
			CategoryID:        item.CategoryID,
			CategoryName:      item.CategoryName,
			MRPCents:          item.MRPCents,
			SellingPriceCents: item.SellingPriceCents,
			Quantity:          item.Quantity,
			MinOrderQty:       item.MinOrderQty,
			MaxOrderQty:       item.MaxOrderQty,
			OrderType:         item.OrderType,
			GroupOrderID:      item.GroupOrderID,
			ExpiresAt:         expiresAt,
			AddedAt:           item.AddedAt.UTC(),
		})
	}
	return cart
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when no listing matches the requested id.
var ErrProductNotFound = errors.New("product not found")

// Product is the policy and display data the cart needs from a catalog listing.
// SellingPriceCents is the discounted group-buy price; MRPCents is the list price.
type Product struct {
	ID                string
	Name              string
	Slug              string
	ImageURL          string
	Unit              string
	UnitSize          string
	CategoryID        string
	CategoryName      string
	MRPCents          int64
	SellingPriceCents int64
	MinOrderQty       int
	MaxOrderQty       *int
	IsActive          bool
}

// Repository reads listings from the catalog tables. It never writes.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetProduct loads a listing with its category name.
func (r *Repository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrProductNotFound
	}

	var row models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", productID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}
	return fromModel(row), nil
}

func fromModel(row models.Product) *Product {
	p := &Product{
		ID:                row.ID,
		Name:              row.Name,
		Slug:              row.Slug,
		ImageURL:          row.ImageURL,
		Unit:              row.Unit,
		UnitSize:          row.UnitSize,
		CategoryID:        row.CategoryID,
		MRPCents:          row.MRPCents,
		SellingPriceCents: row.SellingPriceCents,
		MinOrderQty:       row.MinOrderQty,
		MaxOrderQty:       row.MaxOrderQty,
		IsActive:          row.IsActive,
	}
	if p.MinOrderQty < 1 {
		p.MinOrderQty = 1
	}
	if row.Category != nil {
		p.CategoryName = row.Category.Name
	}
	return p
}

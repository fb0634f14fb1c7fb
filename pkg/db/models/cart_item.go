package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
)

// CartItem persists a cart line with the catalog snapshot taken when it was added.
type CartItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID            uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	Position          int             `gorm:"column:position;not null"`
	ProductID         string          `gorm:"column:product_id;not null;index"`
	Name              string          `gorm:"column:name;not null"`
	Slug              string          `gorm:"column:slug;not null"`
	ImageURL          string          `gorm:"column:image_url"`
	Unit              string          `gorm:"column:unit"`
	UnitSize          string          `gorm:"column:unit_size"`
	CategoryID        string          `gorm:"column:category_id"`
	CategoryName      string          `gorm:"column:category_name"`
	MRPCents          int64           `gorm:"column:mrp_cents;not null"`
	SellingPriceCents int64           `gorm:"column:selling_price_cents;not null"`
	Quantity          int             `gorm:"column:quantity;not null"`
	MinOrderQty       int             `gorm:"column:min_order_qty;not null;default:1"`
	MaxOrderQty       *int            `gorm:"column:max_order_qty"`
	OrderType         enums.OrderType `gorm:"column:order_type;not null"`
	GroupOrderID      *string         `gorm:"column:group_order_id"`
	ExpiresAt         *time.Time      `gorm:"column:expires_at"`
	AddedAt           time.Time       `gorm:"column:added_at;not null"`
}

func (CartItem) TableName() string { return "cart_items" }

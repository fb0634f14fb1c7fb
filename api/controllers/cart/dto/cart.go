package cartdto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
)

// Cart is the cart snapshot exposed through the API. Money is rendered as
// fixed two-decimal strings next to the raw cent values.
type Cart struct {
	ID            string    `json:"id"`
	Items         []Item    `json:"items"`
	TotalItems    int       `json:"total_items"`
	Subtotal      string    `json:"subtotal"`
	TotalDiscount string    `json:"total_discount"`
	TotalAmount   string    `json:"total_amount"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"total_discount_cents"`
	TotalCents    int64     `json:"total_amount_cents"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Item struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	ImageURL     string          `json:"image_url,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	UnitSize     string          `json:"unit_size,omitempty"`
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	MRP          string          `json:"mrp"`
	SellingPrice string          `json:"selling_price"`
	LineTotal    string          `json:"line_total"`
	Quantity     int             `json:"quantity"`
	MinOrderQty  int             `json:"min_order_qty"`
	MaxOrderQty  *int            `json:"max_order_qty,omitempty"`
	OrderType    enums.OrderType `json:"order_type"`
	GroupOrderID *string         `json:"group_order_id,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	Expired      bool            `json:"expired"`
	AddedAt      time.Time       `json:"added_at"`
}

// MergeResult reports the user cart after a guest merge.
type MergeResult struct {
	Cart        Cart      `json:"cart"`
	MergedItems int       `json:"merged_items"`
	Warnings    []Warning `json:"warnings"`
}

type Warning struct {
	Type      enums.CartItemWarningType `json:"type"`
	ItemID    uuid.UUID                 `json:"item_id"`
	ProductID string                    `json:"product_id"`
	Requested int                       `json:"requested"`
	Applied   int                       `json:"applied"`
}

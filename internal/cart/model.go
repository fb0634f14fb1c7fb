package cart

import (
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/google/uuid"
)

// Cart is the aggregate stored in the cache and mirrored in the durable store.
// The four totals are derived from Items and are only written by recalculate.
type Cart struct {
	ID                 string    `json:"id"`
	RecordID           uuid.UUID `json:"record_id"`
	UserID             *string   `json:"user_id,omitempty"`
	SessionToken       *string   `json:"session_token,omitempty"`
	Items              []Item    `json:"items"`
	TotalItems         int       `json:"total_items"`
	SubtotalCents      int64     `json:"subtotal_cents"`
	TotalDiscountCents int64     `json:"total_discount_cents"`
	TotalAmountCents   int64     `json:"total_amount_cents"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Item is one cart line. Display fields, prices, bounds and ExpiresAt are a
// snapshot taken when the line was first added.
type Item struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	ImageURL          string          `json:"image_url,omitempty"`
	Unit              string          `json:"unit,omitempty"`
	UnitSize          string          `json:"unit_size,omitempty"`
	CategoryID        string          `json:"category_id,omitempty"`
	CategoryName      string          `json:"category_name,omitempty"`
	MRPCents          int64           `json:"mrp_cents"`
	SellingPriceCents int64           `json:"selling_price_cents"`
	Quantity          int             `json:"quantity"`
	MinOrderQty       int             `json:"min_order_qty"`
	MaxOrderQty       *int            `json:"max_order_qty,omitempty"`
	OrderType         enums.OrderType `json:"order_type"`
	GroupOrderID      *string         `json:"group_order_id,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	AddedAt           time.Time       `json:"added_at"`
}

// Expired reports whether the group-order deadline stamped on the line has passed.
func (i Item) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// itemKey identifies a logical line: two items with the same key are merged.
type itemKey struct {
	productID    string
	orderType    enums.OrderType
	groupOrderID string
}

func (i Item) key() itemKey {
	return newItemKey(i.ProductID, i.OrderType, i.GroupOrderID)
}

func newItemKey(productID string, orderType enums.OrderType, groupOrderID *string) itemKey {
	k := itemKey{productID: productID, orderType: orderType}
	if groupOrderID != nil {
		k.groupOrderID = *groupOrderID
	}
	return k
}

// Warning describes a non-fatal adjustment applied to a line.
type Warning struct {
	Type      enums.CartItemWarningType `json:"type"`
	ItemID    uuid.UUID                 `json:"item_id"`
	ProductID string                    `json:"product_id"`
	Requested int                       `json:"requested"`
	Applied   int                       `json:"applied"`
}

// MergeResult is the user cart after a guest merge plus any clamping warnings.
type MergeResult struct {
	Cart        *Cart
	MergedItems int
	Warnings    []Warning
}

func newCart(id Identity, recordID uuid.UUID, now time.Time) *Cart {
	c := &Cart{
		ID:        id.CartID(),
		RecordID:  recordID,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if id.IsGuest() {
		token := id.SessionToken
		c.SessionToken = &token
	} else {
		userID := id.UserID
		c.UserID = &userID
	}
	return c
}

// Identity rebuilds the owner of the cart from its id fields.
func (c *Cart) Identity() Identity {
	if c.UserID != nil {
		return UserIdentity(*c.UserID)
	}
	if c.SessionToken != nil {
		return GuestIdentity(*c.SessionToken)
	}
	return Identity{}
}

func (c *Cart) indexOfKey(k itemKey) int {
	for i := range c.Items {
		if c.Items[i].key() == k {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfItem(id uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

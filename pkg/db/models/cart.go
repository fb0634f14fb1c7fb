package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
)

// Cart is the durable row for one cart identity. Exactly one of UserID and
// SessionToken is set; both columns are unique.
type Cart struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CartKey            string             `gorm:"column:cart_key;not null;uniqueIndex"`
	IdentityKind       enums.IdentityKind `gorm:"column:identity_kind;not null"`
	UserID             *string            `gorm:"column:user_id;uniqueIndex"`
	SessionToken       *string            `gorm:"column:session_token;uniqueIndex"`
	TotalItems         int                `gorm:"column:total_items;not null;default:0"`
	SubtotalCents      int64              `gorm:"column:subtotal_cents;not null;default:0"`
	TotalDiscountCents int64              `gorm:"column:total_discount_cents;not null;default:0"`
	TotalAmountCents   int64              `gorm:"column:total_amount_cents;not null;default:0"`
	Version            int64              `gorm:"column:version;not null;default:0"`
	Items              []CartItem         `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time          `gorm:"column:created_at"`
	UpdatedAt          time.Time          `gorm:"column:updated_at"`
}

func (Cart) TableName() string { return "carts" }

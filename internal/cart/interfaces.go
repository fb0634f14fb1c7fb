package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/groupcart-backend/internal/catalog"
	"gorm.io/gorm"
)

// CartRepository defines the durable persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	LoadByIdentity(ctx context.Context, id Identity) (*Cart, error)
	Upsert(ctx context.Context, cart *Cart) error
	DeleteByIdentity(ctx context.Context, id Identity) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productCatalog interface {
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
}

type groupOrderLookup interface {
	GetExpiry(ctx context.Context, groupOrderID string) (time.Time, error)
}

package cart

import (
	"fmt"

	"github.com/angelmondragon/groupcart-backend/internal/catalog"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
)

// Rejection explains which product bound a requested quantity violated.
type Rejection struct {
	Reason    enums.RejectionReason `json:"reason"`
	ProductID string                `json:"product_id"`
	Requested int                   `json:"requested"`
	Min       int                   `json:"min_order_qty"`
	Max       *int                  `json:"max_order_qty,omitempty"`
	Shortfall int                   `json:"shortfall,omitempty"`
	Excess    int                   `json:"excess,omitempty"`
}

func (r *Rejection) Error() string {
	return r.message()
}

func (r *Rejection) message() string {
	switch r.Reason {
	case enums.RejectionReasonBelowMinimum:
		return fmt.Sprintf("minimum order quantity is %d, requested %d", r.Min, r.Requested)
	case enums.RejectionReasonAboveMaximum:
		return fmt.Sprintf("maximum order quantity is %d, requested %d", derefInt(r.Max), r.Requested)
	default:
		return "product is not available"
	}
}

// asError wraps the rejection for callers; the rejection travels as the error details.
func (r *Rejection) asError() error {
	return pkgerrors.New(pkgerrors.CodePolicyRejected, r.message()).WithDetails(r)
}

// rejectionFrom extracts the policy rejection carried by err, if any.
func rejectionFrom(err error) (*Rejection, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePolicyRejected {
		return nil, false
	}
	r, ok := typed.Details().(*Rejection)
	return r, ok
}

// ValidateQuantity checks a requested line quantity against the product's
// availability and order bounds. A nil product is unavailable.
func ValidateQuantity(product *catalog.Product, qty int) *Rejection {
	if product == nil || !product.IsActive {
		r := &Rejection{Reason: enums.RejectionReasonProductUnavailable, Requested: qty}
		if product != nil {
			r.ProductID = product.ID
			r.Min = minOrderQty(product)
			r.Max = product.MaxOrderQty
		}
		return r
	}

	min := minOrderQty(product)
	if qty < min {
		return &Rejection{
			Reason:    enums.RejectionReasonBelowMinimum,
			ProductID: product.ID,
			Requested: qty,
			Min:       min,
			Max:       product.MaxOrderQty,
			Shortfall: min - qty,
		}
	}
	if product.MaxOrderQty != nil && qty > *product.MaxOrderQty {
		return &Rejection{
			Reason:    enums.RejectionReasonAboveMaximum,
			ProductID: product.ID,
			Requested: qty,
			Min:       min,
			Max:       product.MaxOrderQty,
			Excess:    qty - *product.MaxOrderQty,
		}
	}
	return nil
}

func minOrderQty(product *catalog.Product) int {
	if product.MinOrderQty < 1 {
		return 1
	}
	return product.MinOrderQty
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

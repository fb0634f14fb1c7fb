package cart

import (
	"time"

	"github.com/shopspring/decimal"

	cartdto "github.com/angelmondragon/groupcart-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/groupcart-backend/internal/cart"
)

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func newCartResponse(c *cart.Cart, now time.Time) cartdto.Cart {
	items := make([]cartdto.Item, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, cartdto.Item{
			ID:           item.ID,
			ProductID:    item.ProductID,
			Name:         item.Name,
			Slug:         item.Slug,
			ImageURL:     item.ImageURL,
			Unit:         item.Unit,
			UnitSize:     item.UnitSize,
			CategoryID:   item.CategoryID,
			CategoryName: item.CategoryName,
			MRP:          formatCents(item.MRPCents),
			SellingPrice: formatCents(item.SellingPriceCents),
			LineTotal:    formatCents(item.SellingPriceCents * int64(item.Quantity)),
			Quantity:     item.Quantity,
			MinOrderQty:  item.MinOrderQty,
			MaxOrderQty:  item.MaxOrderQty,
			OrderType:    item.OrderType,
			GroupOrderID: item.GroupOrderID,
			ExpiresAt:    item.ExpiresAt,
			Expired:      item.Expired(now),
			AddedAt:      item.AddedAt,
		})
	}

	return cartdto.Cart{
		ID:            c.ID,
		Items:         items,
		TotalItems:    c.TotalItems,
		Subtotal:      formatCents(c.SubtotalCents),
		TotalDiscount: formatCents(c.TotalDiscountCents),
		TotalAmount:   formatCents(c.TotalAmountCents),
		SubtotalCents: c.SubtotalCents,
		DiscountCents: c.TotalDiscountCents,
		TotalCents:    c.TotalAmountCents,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func newMergeResponse(result *cart.MergeResult, now time.Time) cartdto.MergeResult {
	warnings := make([]cartdto.Warning, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, cartdto.Warning{
			Type:      w.Type,
			ItemID:    w.ItemID,
			ProductID: w.ProductID,
			Requested: w.Requested,
			Applied:   w.Applied,
		})
	}
	return cartdto.MergeResult{
		Cart:        newCartResponse(result.Cart, now),
		MergedItems: result.MergedItems,
		Warnings:    warnings,
	}
}

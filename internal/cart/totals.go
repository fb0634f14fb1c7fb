package cart

// Totals are the aggregates derived from a cart's lines. Money is in cents.
type Totals struct {
	TotalItems         int
	SubtotalCents      int64
	TotalDiscountCents int64
	TotalAmountCents   int64
}

// ComputeTotals sums quantity, list price, discount and payable amount over items.
// SubtotalCents - TotalDiscountCents == TotalAmountCents for any input.
func ComputeTotals(items []Item) Totals {
	var t Totals
	for _, item := range items {
		qty := int64(item.Quantity)
		t.TotalItems += item.Quantity
		t.SubtotalCents += item.MRPCents * qty
		t.TotalDiscountCents += (item.MRPCents - item.SellingPriceCents) * qty
		t.TotalAmountCents += item.SellingPriceCents * qty
	}
	return t
}

// recalculate must run after every change to Items and before the cart is saved.
func (c *Cart) recalculate() {
	if c.Items == nil {
		c.Items = []Item{}
	}
	t := ComputeTotals(c.Items)
	c.TotalItems = t.TotalItems
	c.SubtotalCents = t.SubtotalCents
	c.TotalDiscountCents = t.TotalDiscountCents
	c.TotalAmountCents = t.TotalAmountCents
}

package cartdto

// AddItemRequest is the body of POST /api/v1/cart/items.
type AddItemRequest struct {
	ProductID    string  `json:"product_id" validate:"required,max=64"`
	Quantity     int     `json:"quantity" validate:"required,min=1"`
	OrderType    string  `json:"order_type,omitempty" validate:"omitempty,oneof=priority group"`
	GroupOrderID *string `json:"group_order_id,omitempty" validate:"omitempty,max=64"`
}

// UpdateItemRequest sets an absolute quantity; zero removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

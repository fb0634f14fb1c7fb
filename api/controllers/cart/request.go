package cart

import (
	cartdto "github.com/angelmondragon/groupcart-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/groupcart-backend/api/validators"
	"github.com/angelmondragon/groupcart-backend/internal/cart"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
)

const maxIDLength = 64

func toAddItemInput(payload cartdto.AddItemRequest) cart.AddItemInput {
	input := cart.AddItemInput{
		ProductID: validators.SanitizeString(payload.ProductID, maxIDLength),
		Quantity:  payload.Quantity,
		OrderType: enums.OrderType(payload.OrderType),
	}
	if payload.GroupOrderID != nil {
		groupOrderID := validators.SanitizeString(*payload.GroupOrderID, maxIDLength)
		input.GroupOrderID = &groupOrderID
	}
	return input
}

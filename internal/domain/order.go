package domain

import (
	"context"

	"github.com/google/uuid"
)

// OrderSummary is the slice of an order needed to resolve review filters
type OrderSummary struct {
	ID         uuid.UUID   `json:"id"`
	CustomerID uuid.UUID   `json:"customer_id"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// OrderLookup reads order data owned by the host platform. It backs the
// purchase-verification check and the order-id list filter.
type OrderLookup interface {
	// CustomerOwnsProduct reports whether the customer has the given order
	// and the order contains an item for the given product
	CustomerOwnsProduct(ctx context.Context, customerID, orderID, productID uuid.UUID) (bool, error)

	// GetOrderSummary retrieves the order's customer and product ids
	GetOrderSummary(ctx context.Context, orderID uuid.UUID) (*OrderSummary, error)
}

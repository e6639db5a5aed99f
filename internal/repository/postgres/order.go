package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/storefront-plugins/product-reviews/internal/domain"
)

// OrderLookup implements domain.OrderLookup as a read-only view over the
// host platform's orders and order_items tables.
type OrderLookup struct {
	db *sqlx.DB
}

// NewOrderLookup creates a new order lookup
func NewOrderLookup(db *sqlx.DB) *OrderLookup {
	return &OrderLookup{db: db}
}

// CustomerOwnsProduct reports whether the customer has the given order
// and the order contains an item for the given product
func (l *OrderLookup) CustomerOwnsProduct(ctx context.Context, customerID, orderID, productID uuid.UUID) (bool, error) {
	e := ext(ctx, l.db)

	query := `
		SELECT EXISTS(
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.id = $1 AND o.customer_id = $2 AND oi.product_id = $3
		)
	`

	var exists bool
	if err := sqlx.GetContext(ctx, e, &exists, query, orderID, customerID, productID); err != nil {
		return false, err
	}

	return exists, nil
}

// GetOrderSummary retrieves the order's customer and product ids
func (l *OrderLookup) GetOrderSummary(ctx context.Context, orderID uuid.UUID) (*domain.OrderSummary, error) {
	e := ext(ctx, l.db)

	summary := domain.OrderSummary{ID: orderID}
	err := sqlx.GetContext(ctx, e, &summary.CustomerID, `SELECT customer_id FROM orders WHERE id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	productIDs := []uuid.UUID{}
	err = sqlx.SelectContext(ctx, e, &productIDs, `SELECT DISTINCT product_id FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	summary.ProductIDs = productIDs

	return &summary, nil
}

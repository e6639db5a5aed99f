package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/storefront-plugins/product-reviews/internal/domain"
)

type txKey struct{}

// Ensure TxManager implements domain.Transactor
var _ domain.Transactor = (*TxManager)(nil)

// TxManager implements domain.Transactor over sqlx. Repositories in this
// package pick the transaction out of the context, so every repository
// call made inside WithinTransaction joins the same transaction.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTransaction runs fn inside a single transaction. The transaction
// is rolled back if fn returns an error or panics.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ext returns the ambient transaction if the context carries one,
// otherwise the plain connection pool.
func ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

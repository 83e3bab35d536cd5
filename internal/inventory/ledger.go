package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tradehub-be/internal/logger"

	"go.uber.org/zap"
)

// Queryer is the slice of database/sql shared by *sql.DB and *sql.Tx.
// Ledger operations take it explicitly so an order transition can run them
// inside its own transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Ledger interface {
	// Reserve decrements stock and increments sold for one line item.
	// In strict mode it fails with ErrInsufficientStock instead of going
	// below zero.
	Reserve(ctx context.Context, q Queryer, productID string, qty int) error

	// Restock returns quantity to stock after an approved return. Sold is
	// left untouched.
	Restock(ctx context.Context, q Queryer, productID string, qty int) error

	GetRecord(ctx context.Context, productID string) (*Record, error)
}

type ledger struct {
	db            *sql.DB
	allowNegative bool
}

type Option func(*ledger)

// AllowNegativeStock switches Reserve to a blind decrement so a sale can
// oversell past the stock floor.
func AllowNegativeStock() Option {
	return func(l *ledger) { l.allowNegative = true }
}

func NewLedger(db *sql.DB, opts ...Option) Ledger {
	l := &ledger{db: db}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ledger) Reserve(ctx context.Context, q Queryer, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "inventory"),
		zap.String("product_id", productID),
		zap.Int("qty", qty),
	)

	query := `
		UPDATE inventory
		SET stock = stock - $1, sold = sold + $1, updated_at = NOW()
		WHERE product_id = $2 AND stock >= $1
	`
	if l.allowNegative {
		query = `
		UPDATE inventory
		SET stock = stock - $1, sold = sold + $1, updated_at = NOW()
		WHERE product_id = $2
	`
	}

	res, err := q.ExecContext(ctx, query, qty, productID)
	if err != nil {
		log.Error("failed to reserve stock", zap.Error(err))
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if affected == 0 {
		// Conditional update misses both on unknown product and on a
		// stock shortfall; look up which one it was.
		var stock int
		err := q.QueryRowContext(ctx,
			`SELECT stock FROM inventory WHERE product_id = $1`, productID,
		).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("product not found")
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}
		log.Warn("insufficient stock", zap.Int("stock", stock))
		return ErrInsufficientStock
	}

	log.Debug("stock reserved")
	return nil
}

func (l *ledger) Restock(ctx context.Context, q Queryer, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	res, err := q.ExecContext(ctx, `
		UPDATE inventory
		SET stock = stock + $1, updated_at = NOW()
		WHERE product_id = $2
	`, qty, productID)
	if err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (l *ledger) GetRecord(ctx context.Context, productID string) (*Record, error) {
	var rec Record
	err := l.db.QueryRowContext(ctx, `
		SELECT product_id, stock, sold, updated_at
		FROM inventory
		WHERE product_id = $1
	`, productID).Scan(&rec.ProductID, &rec.Stock, &rec.Sold, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory record: %w", err)
	}

	return &rec, nil
}

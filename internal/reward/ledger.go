package reward

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tradehub-be/internal/logger"
	"tradehub-be/internal/money"

	"go.uber.org/zap"
)

// Queryer is satisfied by *sql.DB and *sql.Tx so ledger mutations can join
// the transaction of the order transition that triggered them.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Ledger interface {
	// CreditPoints adds earned points, creating the account on first use.
	CreditPoints(ctx context.Context, q Queryer, buyerID uint, points int64) error
	// DebitPoints revokes earned points, failing with ErrInsufficientPoints
	// rather than driving the balance negative.
	DebitPoints(ctx context.Context, q Queryer, buyerID uint, points int64) error
	CreditBalance(ctx context.Context, q Queryer, buyerID uint, amount money.Money) error
	// DebitBalance fails with ErrInsufficientBalance when the wallet does
	// not cover the amount.
	DebitBalance(ctx context.Context, q Queryer, buyerID uint, amount money.Money) error
	GetAccount(ctx context.Context, buyerID uint) (*Account, error)
}

type ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) CreditPoints(ctx context.Context, q Queryer, buyerID uint, points int64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO reward_accounts (buyer_id, points, balance, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (buyer_id)
		DO UPDATE SET points = reward_accounts.points + EXCLUDED.points, updated_at = NOW()
	`, buyerID, points)
	if err != nil {
		return fmt.Errorf("failed to credit points: %w", err)
	}

	return nil
}

func (l *ledger) DebitPoints(ctx context.Context, q Queryer, buyerID uint, points int64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "reward"),
		zap.Uint("buyer_id", buyerID),
		zap.Int64("points", points),
	)

	res, err := q.ExecContext(ctx, `
		UPDATE reward_accounts
		SET points = points - $1, updated_at = NOW()
		WHERE buyer_id = $2 AND points >= $1
	`, points, buyerID)
	if err != nil {
		log.Error("failed to debit points", zap.Error(err))
		return fmt.Errorf("failed to debit points: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to debit points: %w", err)
	}
	if affected == 0 {
		if err := l.accountExists(ctx, q, buyerID); err != nil {
			return err
		}
		log.Warn("points debit below zero refused")
		return ErrInsufficientPoints
	}

	return nil
}

func (l *ledger) CreditBalance(ctx context.Context, q Queryer, buyerID uint, amount money.Money) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO reward_accounts (buyer_id, points, balance, updated_at)
		VALUES ($1, 0, $2, NOW())
		ON CONFLICT (buyer_id)
		DO UPDATE SET balance = reward_accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`, buyerID, int64(amount))
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	return nil
}

func (l *ledger) DebitBalance(ctx context.Context, q Queryer, buyerID uint, amount money.Money) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	res, err := q.ExecContext(ctx, `
		UPDATE reward_accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE buyer_id = $2 AND balance >= $1
	`, int64(amount), buyerID)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if affected == 0 {
		if err := l.accountExists(ctx, q, buyerID); err != nil {
			return err
		}
		return ErrInsufficientBalance
	}

	return nil
}

func (l *ledger) GetAccount(ctx context.Context, buyerID uint) (*Account, error) {
	var acc Account
	var balance int64

	err := l.db.QueryRowContext(ctx, `
		SELECT buyer_id, points, balance, updated_at
		FROM reward_accounts
		WHERE buyer_id = $1
	`, buyerID).Scan(&acc.BuyerID, &acc.Points, &balance, &acc.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward account: %w", err)
	}

	acc.Balance = money.Money(balance)
	return &acc, nil
}

func (l *ledger) accountExists(ctx context.Context, q Queryer, buyerID uint) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reward_accounts WHERE buyer_id = $1)`, buyerID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check reward account: %w", err)
	}
	if !exists {
		return ErrAccountNotFound
	}
	return nil
}

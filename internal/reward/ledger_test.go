package reward

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradehub-be/internal/money"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_CreditPoints(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	led := NewLedger(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO reward_accounts .* ON CONFLICT \(buyer_id\)`).
			WithArgs(uint(7), int64(1050)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := led.CreditPoints(ctx, db, 7, 1050)
		assert.NoError(t, err)
	})

	t.Run("CreatesAccountOnFirstCredit", func(t *testing.T) {
		// The upsert inserts a fresh row for an unknown buyer.
		mock.ExpectExec(`INSERT INTO reward_accounts`).
			WithArgs(uint(99), int64(10)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := led.CreditPoints(ctx, db, 99, 10)
		assert.NoError(t, err)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		err := led.CreditPoints(ctx, db, 7, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestLedger_DebitPoints(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	led := NewLedger(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE reward_accounts SET points = points - \$1, updated_at = NOW\(\) WHERE buyer_id = \$2 AND points >= \$1`).
			WithArgs(int64(100), uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := led.DebitPoints(ctx, db, 7, 100)
		assert.NoError(t, err)
	})

	t.Run("InsufficientPoints", func(t *testing.T) {
		mock.ExpectExec(`UPDATE reward_accounts`).
			WithArgs(int64(500), uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := led.DebitPoints(ctx, db, 7, 500)
		assert.ErrorIs(t, err, ErrInsufficientPoints)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		mock.ExpectExec(`UPDATE reward_accounts`).
			WithArgs(int64(500), uint(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := led.DebitPoints(ctx, db, 99, 500)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestLedger_Balance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	led := NewLedger(db)
	ctx := context.Background()

	t.Run("CreditSuccess", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO reward_accounts .* ON CONFLICT \(buyer_id\)`).
			WithArgs(uint(7), int64(99750)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := led.CreditBalance(ctx, db, 7, money.Money(99750))
		assert.NoError(t, err)
	})

	t.Run("DebitSuccess", func(t *testing.T) {
		mock.ExpectExec(`UPDATE reward_accounts SET balance = balance - \$1, updated_at = NOW\(\) WHERE buyer_id = \$2 AND balance >= \$1`).
			WithArgs(int64(500), uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := led.DebitBalance(ctx, db, 7, money.Money(500))
		assert.NoError(t, err)
	})

	t.Run("DebitInsufficientBalance", func(t *testing.T) {
		mock.ExpectExec(`UPDATE reward_accounts`).
			WithArgs(int64(100000), uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := led.DebitBalance(ctx, db, 7, money.Money(100000))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("DebitInvalidAmount", func(t *testing.T) {
		err := led.DebitBalance(ctx, db, 7, money.Money(-5))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO reward_accounts`).
			WithArgs(uint(7), int64(500)).
			WillReturnError(errors.New("db error"))

		err := led.CreditBalance(ctx, db, 7, money.Money(500))
		assert.Error(t, err)
	})
}

func TestLedger_GetAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	led := NewLedger(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"buyer_id", "points", "balance", "updated_at"}).
			AddRow(7, 1050, 99750, time.Now())

		mock.ExpectQuery(`SELECT buyer_id, points, balance, updated_at FROM reward_accounts WHERE buyer_id = \$1`).
			WithArgs(uint(7)).
			WillReturnRows(rows)

		acc, err := led.GetAccount(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1050), acc.Points)
		assert.Equal(t, money.Money(99750), acc.Balance)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT buyer_id, points, balance, updated_at FROM reward_accounts`).
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows([]string{"buyer_id", "points", "balance", "updated_at"}))

		_, err := led.GetAccount(ctx, 99)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

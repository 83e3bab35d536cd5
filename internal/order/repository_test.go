package order

import (
	"context"
	"testing"
	"time"

	"tradehub-be/internal/inventory"
	"tradehub-be/internal/money"
	"tradehub-be/internal/reward"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Ledger mocks ---

type MockInventoryLedger struct {
	mock.Mock
}

func (m *MockInventoryLedger) Reserve(ctx context.Context, q inventory.Queryer, productID string, qty int) error {
	args := m.Called(ctx, q, productID, qty)
	return args.Error(0)
}

func (m *MockInventoryLedger) Restock(ctx context.Context, q inventory.Queryer, productID string, qty int) error {
	args := m.Called(ctx, q, productID, qty)
	return args.Error(0)
}

func (m *MockInventoryLedger) GetRecord(ctx context.Context, productID string) (*inventory.Record, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Record), args.Error(1)
}

type MockRewardLedger struct {
	mock.Mock
}

func (m *MockRewardLedger) CreditPoints(ctx context.Context, q reward.Queryer, buyerID uint, points int64) error {
	args := m.Called(ctx, q, buyerID, points)
	return args.Error(0)
}

func (m *MockRewardLedger) DebitPoints(ctx context.Context, q reward.Queryer, buyerID uint, points int64) error {
	args := m.Called(ctx, q, buyerID, points)
	return args.Error(0)
}

func (m *MockRewardLedger) CreditBalance(ctx context.Context, q reward.Queryer, buyerID uint, amount money.Money) error {
	args := m.Called(ctx, q, buyerID, amount)
	return args.Error(0)
}

func (m *MockRewardLedger) DebitBalance(ctx context.Context, q reward.Queryer, buyerID uint, amount money.Money) error {
	args := m.Called(ctx, q, buyerID, amount)
	return args.Error(0)
}

func (m *MockRewardLedger) GetAccount(ctx context.Context, buyerID uint) (*reward.Account, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Account), args.Error(1)
}

// --- Row helpers ---

var orderCols = []string{
	"id", "buyer_id", "payment_method",
	"ship_address", "ship_city", "ship_postal_code", "ship_country",
	"items_price", "shipping_price", "tax_price", "platform_fee", "total_price",
	"status",
	"payment_ref", "payment_status", "payment_update_time", "payer_email",
	"paid_at", "shipped_at", "delivered_at", "refunded_at",
	"return_status", "return_reason", "return_requested_at", "return_reject_reason",
	"created_at", "updated_at",
}

type rowOpts struct {
	status       Status
	deliveredAt  *time.Time
	returnStatus *ReturnStatus
}

func orderRows(orderID uuid.UUID, opts rowOpts) *sqlmock.Rows {
	now := time.Now()

	var returnStatus, returnReason any
	var returnRequestedAt any
	if opts.returnStatus != nil {
		returnStatus = string(*opts.returnStatus)
		returnReason = "damaged"
		returnRequestedAt = now
	}

	var deliveredAt any
	if opts.deliveredAt != nil {
		deliveredAt = *opts.deliveredAt
	}

	return sqlmock.NewRows(orderCols).AddRow(
		orderID.String(), 7, "wallet",
		"1 Main St", "Springfield", "12345", "US",
		90000, 10000, 0, 5000, 105000,
		string(opts.status),
		nil, nil, nil, nil,
		nil, nil, deliveredAt, nil,
		returnStatus, returnReason, returnRequestedAt, nil,
		now, now,
	)
}

func itemRows(orderID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "unit_price", "quantity"}).
		AddRow(1, orderID.String(), "prod-1", "Used camera", 90000, 2)
}

func expectLockedOrder(mock sqlmock.Sqlmock, orderID uuid.UUID, opts rowOpts) {
	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs(orderID).
		WillReturnRows(orderRows(orderID, opts))
	mock.ExpectQuery(`SELECT id, order_id, product_id, name, unit_price, quantity FROM order_items`).
		WillReturnRows(itemRows(orderID))
}

// --- Tests ---

func TestRepository_CreateOrder(t *testing.T) {
	ctx := context.Background()

	newOrder := func() *Order {
		o := &Order{
			ID:            uuid.New(),
			BuyerID:       7,
			PaymentMethod: "wallet",
			ItemsPrice:    money.Money(90000),
			ShippingPrice: money.Money(10000),
			PlatformFee:   money.Money(5000),
			TotalPrice:    money.Money(105000),
			Status:        StatusCreated,
			CreatedAt:     time.Now(),
		}
		o.Items = []Item{{OrderID: o.ID, ProductID: "prod-1", Name: "Used camera", UnitPrice: money.Money(90000), Quantity: 2}}
		return o
	}

	t.Run("Success", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		inv := new(MockInventoryLedger)
		rw := new(MockRewardLedger)
		repo := NewRepository(db, inv, rw)
		o := newOrder()

		dbmock.ExpectBegin()
		dbmock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(1, 1))
		inv.On("Reserve", ctx, mock.Anything, "prod-1", 2).Return(nil)
		dbmock.ExpectCommit()

		err = repo.CreateOrder(ctx, o)
		assert.NoError(t, err)
		assert.NoError(t, dbmock.ExpectationsWereMet())
		inv.AssertExpectations(t)
	})

	t.Run("Insufficient stock rolls back", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		inv := new(MockInventoryLedger)
		rw := new(MockRewardLedger)
		repo := NewRepository(db, inv, rw)
		o := newOrder()

		dbmock.ExpectBegin()
		dbmock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(1, 1))
		inv.On("Reserve", ctx, mock.Anything, "prod-1", 2).Return(inventory.ErrInsufficientStock)
		dbmock.ExpectRollback()

		err = repo.CreateOrder(ctx, o)
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})
}

func TestRepository_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	orderID := uuid.New()
	receipt := testReceipt()

	t.Run("Success credits points once", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		inv := new(MockInventoryLedger)
		rw := new(MockRewardLedger)
		repo := NewRepository(db, inv, rw)

		dbmock.ExpectBegin()
		expectLockedOrder(dbmock, orderID, rowOpts{status: StatusCreated})
		// total 1050.00 -> 1050 points
		rw.On("CreditPoints", ctx, mock.Anything, uint(7), int64(1050)).Return(nil)
		dbmock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		o, err := repo.ConfirmPayment(ctx, orderID, receipt, now)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, o.Status)
		require.NotNil(t, o.PaymentResult)
		assert.Equal(t, receipt.ID, o.PaymentResult.ID)
		rw.AssertExpectations(t)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("Already paid", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		inv := new(MockInventoryLedger)
		rw := new(MockRewardLedger)
		repo := NewRepository(db, inv, rw)

		dbmock.ExpectBegin()
		expectLockedOrder(dbmock, orderID, rowOpts{status: StatusPaid})
		dbmock.ExpectRollback()

		_, err = repo.ConfirmPayment(ctx, orderID, receipt, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		rw.AssertNotCalled(t, "CreditPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

		dbmock.ExpectBegin()
		dbmock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(orderCols))
		dbmock.ExpectRollback()

		_, err = repo.ConfirmPayment(ctx, orderID, receipt, now)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_RequestReturn(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()
	deliveredAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Within window", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

		dbmock.ExpectBegin()
		expectLockedOrder(dbmock, orderID, rowOpts{status: StatusDelivered, deliveredAt: &deliveredAt})
		dbmock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		o, err := repo.RequestReturn(ctx, orderID, "damaged", deliveredAt.Add(23*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, StatusReturnRequested, o.Status)
		require.NotNil(t, o.ReturnRequest)
		assert.Equal(t, ReturnStatusPending, o.ReturnRequest.Status)
	})

	t.Run("Window expired", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

		dbmock.ExpectBegin()
		expectLockedOrder(dbmock, orderID, rowOpts{status: StatusDelivered, deliveredAt: &deliveredAt})
		dbmock.ExpectRollback()

		_, err = repo.RequestReturn(ctx, orderID, "too late", deliveredAt.Add(25*time.Hour))
		assert.ErrorIs(t, err, ErrReturnWindowExpired)
	})
}

func TestRepository_ApproveReturn(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	orderID := uuid.New()
	pending := ReturnStatusPending

	t.Run("Refunds wallet, revokes points, restocks", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		inv := new(MockInventoryLedger)
		rw := new(MockRewardLedger)
		repo := NewRepository(db, inv, rw)

		dbmock.ExpectBegin()
		expectLockedOrder(dbmock, orderID, rowOpts{status: StatusReturnRequested, returnStatus: &pending})
		// refund = total 1050.00 - fee 50.00 = 1000.00
		rw.On("CreditBalance", ctx, mock.Anything, uint(7), money.Money(100000)).Return(nil)
		rw.On("DebitPoints", ctx, mock.Anything, uint(7), int64(1050)).Return(nil)
		inv.On("Restock", ctx, mock.Anything, "prod-1", 2).Return(nil)
		dbmock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		dbmock.ExpectCommit()

		o, err := repo.ApproveReturn(ctx, orderID, now)
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, o.Status)
		assert.Equal(t, ReturnStatusApproved, o.ReturnRequest.Status)
		rw.AssertExpectations(t)
		inv.AssertExpectations(t)
		assert.NoError(t, dbmock.ExpectationsWereMet())
	})

	t.Run("No pending request", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		inv := new(MockInventoryLedger)
		rw := new(MockRewardLedger)
		repo := NewRepository(db, inv, rw)

		dbmock.ExpectBegin()
		expectLockedOrder(dbmock, orderID, rowOpts{status: StatusDelivered})
		dbmock.ExpectRollback()

		_, err = repo.ApproveReturn(ctx, orderID, now)
		assert.ErrorIs(t, err, ErrNoActiveReturnRequest)
		rw.AssertNotCalled(t, "CreditBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRepository_RejectReturn(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()
	pending := ReturnStatusPending

	db, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

	dbmock.ExpectBegin()
	expectLockedOrder(dbmock, orderID, rowOpts{status: StatusReturnRequested, returnStatus: &pending})
	dbmock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	dbmock.ExpectCommit()

	o, err := repo.RejectReturn(ctx, orderID, "signs of use")
	require.NoError(t, err)
	assert.Equal(t, StatusReturnRejected, o.Status)
	require.NotNil(t, o.ReturnRequest.RejectReason)
	assert.Equal(t, "signs of use", *o.ReturnRequest.RejectReason)
}

func TestRepository_GetOrder(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

		dbmock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1$`).
			WithArgs(orderID).
			WillReturnRows(orderRows(orderID, rowOpts{status: StatusPaid}))
		dbmock.ExpectQuery(`SELECT id, order_id, product_id, name, unit_price, quantity FROM order_items`).
			WillReturnRows(itemRows(orderID))

		o, err := repo.GetOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, o.Status)
		assert.Len(t, o.Items, 1)
		assert.Equal(t, money.Money(105000), o.TotalPrice)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

		dbmock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1$`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(orderCols))

		_, err = repo.GetOrder(ctx, orderID)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_ListOrders(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("Status filter and pagination", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

		status := StatusPaid
		dbmock.ExpectQuery(`SELECT (.+) FROM orders WHERE 1=1 AND status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
			WithArgs(status, int32(10), int32(0)).
			WillReturnRows(orderRows(orderID, rowOpts{status: StatusPaid}))
		dbmock.ExpectQuery(`SELECT id, order_id, product_id, name, unit_price, quantity FROM order_items`).
			WillReturnRows(itemRows(orderID))

		orders, err := repo.ListOrders(ctx, &FilterInput{Status: &status}, 10, 1)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
		assert.Len(t, orders[0].Items, 1)
	})

	t.Run("Empty result", func(t *testing.T) {
		db, dbmock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

		dbmock.ExpectQuery(`SELECT (.+) FROM orders WHERE 1=1 ORDER BY created_at DESC`).
			WillReturnRows(sqlmock.NewRows(orderCols))

		orders, err := repo.ListOrders(ctx, nil, 10, 1)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestRepository_ListOrdersForBuyer(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	db, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, new(MockInventoryLedger), new(MockRewardLedger))

	dbmock.ExpectQuery(`SELECT (.+) FROM orders WHERE buyer_id = \$1 ORDER BY created_at DESC`).
		WithArgs(uint(7)).
		WillReturnRows(orderRows(orderID, rowOpts{status: StatusCreated}))
	dbmock.ExpectQuery(`SELECT id, order_id, product_id, name, unit_price, quantity FROM order_items`).
		WillReturnRows(itemRows(orderID))

	orders, err := repo.ListOrdersForBuyer(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

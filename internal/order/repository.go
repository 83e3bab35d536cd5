package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradehub-be/internal/inventory"
	"tradehub-be/internal/logger"
	"tradehub-be/internal/money"
	"tradehub-be/internal/reward"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository persists orders and applies every lifecycle transition as a
// single transaction: the order row is locked, the precondition re-checked
// under the lock, and the ledger side effects commit together with the
// order mutation. Two concurrent ConfirmPayment calls therefore credit
// points exactly once.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, receipt PaymentReceipt, now time.Time) (*Order, error)
	ConfirmShipment(ctx context.Context, orderID uuid.UUID, now time.Time) (*Order, error)
	ConfirmDelivery(ctx context.Context, orderID uuid.UUID, now time.Time) (*Order, error)
	RequestReturn(ctx context.Context, orderID uuid.UUID, reason string, now time.Time) (*Order, error)
	ApproveReturn(ctx context.Context, orderID uuid.UUID, now time.Time) (*Order, error)
	RejectReturn(ctx context.Context, orderID uuid.UUID, reason string) (*Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
	ListOrdersForBuyer(ctx context.Context, buyerID uint) ([]*Order, error)
	ListOrders(ctx context.Context, filter *FilterInput, limit, page int32) ([]*Order, error)
}

// FilterInput narrows the admin order listing.
type FilterInput struct {
	Status   *Status
	BuyerID  *uint
	DateFrom *time.Time
	DateTo   *time.Time
}

type repository struct {
	db        *sql.DB
	inventory inventory.Ledger
	rewards   reward.Ledger
}

func NewRepository(db *sql.DB, inv inventory.Ledger, rw reward.Ledger) Repository {
	return &repository{db: db, inventory: inv, rewards: rw}
}

func (r *repository) CreateOrder(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.String("order_id", o.ID.String()),
		zap.Int("item_count", len(o.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, buyer_id, payment_method,
			ship_address, ship_city, ship_postal_code, ship_country,
			items_price, shipping_price, tax_price, platform_fee, total_price,
			status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)
	`,
		o.ID,
		o.BuyerID,
		o.PaymentMethod,
		o.ShippingAddress.Address,
		o.ShippingAddress.City,
		o.ShippingAddress.PostalCode,
		o.ShippingAddress.Country,
		int64(o.ItemsPrice),
		int64(o.ShippingPrice),
		int64(o.TaxPrice),
		int64(o.PlatformFee),
		int64(o.TotalPrice),
		o.Status,
		o.CreatedAt,
	)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, name, unit_price, quantity
			) VALUES ($1,$2,$3,$4,$5)
		`,
			o.ID,
			item.ProductID,
			item.Name,
			int64(item.UnitPrice),
			item.Quantity,
		)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		// Stock is reserved inside the same transaction, so a shortfall
		// rolls the whole order back.
		if err := r.inventory.Reserve(ctx, tx, item.ProductID, item.Quantity); err != nil {
			log.Warn("failed to reserve stock",
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	log.Info("order created")
	return nil
}

func (r *repository) ConfirmPayment(ctx context.Context, orderID uuid.UUID, receipt PaymentReceipt, now time.Time) (*Order, error) {
	return r.transition(ctx, orderID, "ConfirmPayment", func(tx *sql.Tx, o *Order) error {
		if err := o.MarkPaid(receipt, now); err != nil {
			return err
		}

		if points := o.TotalPrice.Units(); points > 0 {
			if err := r.rewards.CreditPoints(ctx, tx, o.BuyerID, points); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) ConfirmShipment(ctx context.Context, orderID uuid.UUID, now time.Time) (*Order, error) {
	return r.transition(ctx, orderID, "ConfirmShipment", func(tx *sql.Tx, o *Order) error {
		return o.MarkShipped(now)
	})
}

func (r *repository) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, now time.Time) (*Order, error) {
	return r.transition(ctx, orderID, "ConfirmDelivery", func(tx *sql.Tx, o *Order) error {
		return o.MarkDelivered(now)
	})
}

func (r *repository) RequestReturn(ctx context.Context, orderID uuid.UUID, reason string, now time.Time) (*Order, error) {
	return r.transition(ctx, orderID, "RequestReturn", func(tx *sql.Tx, o *Order) error {
		return o.OpenReturn(reason, now)
	})
}

func (r *repository) ApproveReturn(ctx context.Context, orderID uuid.UUID, now time.Time) (*Order, error) {
	return r.transition(ctx, orderID, "ApproveReturn", func(tx *sql.Tx, o *Order) error {
		if err := o.ApproveReturn(now); err != nil {
			return err
		}

		if refund := o.RefundAmount(); refund > 0 {
			if err := r.rewards.CreditBalance(ctx, tx, o.BuyerID, refund); err != nil {
				return err
			}
		}

		// Revoke the points granted at payment.
		if points := o.TotalPrice.Units(); points > 0 {
			if err := r.rewards.DebitPoints(ctx, tx, o.BuyerID, points); err != nil {
				return err
			}
		}

		for _, item := range o.Items {
			if err := r.inventory.Restock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) RejectReturn(ctx context.Context, orderID uuid.UUID, reason string) (*Order, error) {
	return r.transition(ctx, orderID, "RejectReturn", func(tx *sql.Tx, o *Order) error {
		return o.RejectReturn(reason)
	})
}

// transition runs one lifecycle step: lock the order row, apply the
// mutation and its ledger effects, persist, commit.
func (r *repository) transition(
	ctx context.Context,
	orderID uuid.UUID,
	name string,
	apply func(tx *sql.Tx, o *Order) error,
) (*Order, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", name),
		zap.String("order_id", orderID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	o, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := apply(tx, o); err != nil {
		log.Warn("transition refused", zap.String("status", string(o.Status)), zap.Error(err))
		return nil, err
	}

	if err := r.saveOrder(ctx, tx, o); err != nil {
		log.Error("failed to save order", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	log.Info("order transition applied", zap.String("status", string(o.Status)))
	return o, nil
}

const orderColumns = `
	id, buyer_id, payment_method,
	ship_address, ship_city, ship_postal_code, ship_country,
	items_price, shipping_price, tax_price, platform_fee, total_price,
	status,
	payment_ref, payment_status, payment_update_time, payer_email,
	paid_at, shipped_at, delivered_at, refunded_at,
	return_status, return_reason, return_requested_at, return_reject_reason,
	created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

// dbtx is the read surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o             Order
		itemsPrice    int64
		shippingPrice int64
		taxPrice      int64
		platformFee   int64
		totalPrice    int64

		paymentRef        sql.NullString
		paymentStatus     sql.NullString
		paymentUpdateTime sql.NullString
		payerEmail        sql.NullString

		paidAt      sql.NullTime
		shippedAt   sql.NullTime
		deliveredAt sql.NullTime
		refundedAt  sql.NullTime

		returnStatus       sql.NullString
		returnReason       sql.NullString
		returnRequestedAt  sql.NullTime
		returnRejectReason sql.NullString
	)

	err := row.Scan(
		&o.ID, &o.BuyerID, &o.PaymentMethod,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&itemsPrice, &shippingPrice, &taxPrice, &platformFee, &totalPrice,
		&o.Status,
		&paymentRef, &paymentStatus, &paymentUpdateTime, &payerEmail,
		&paidAt, &shippedAt, &deliveredAt, &refundedAt,
		&returnStatus, &returnReason, &returnRequestedAt, &returnRejectReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ItemsPrice = money.Money(itemsPrice)
	o.ShippingPrice = money.Money(shippingPrice)
	o.TaxPrice = money.Money(taxPrice)
	o.PlatformFee = money.Money(platformFee)
	o.TotalPrice = money.Money(totalPrice)

	if paymentRef.Valid {
		o.PaymentResult = &PaymentReceipt{
			ID:         paymentRef.String,
			Status:     paymentStatus.String,
			UpdateTime: paymentUpdateTime.String,
			PayerEmail: payerEmail.String,
		}
	}

	o.PaidAt = nullableTime(paidAt)
	o.ShippedAt = nullableTime(shippedAt)
	o.DeliveredAt = nullableTime(deliveredAt)
	o.RefundedAt = nullableTime(refundedAt)

	if returnStatus.Valid {
		req := &ReturnRequest{
			Reason: returnReason.String,
			Status: ReturnStatus(returnStatus.String),
		}
		if returnRequestedAt.Valid {
			req.RequestedAt = returnRequestedAt.Time
		}
		if returnRejectReason.Valid {
			reason := returnRejectReason.String
			req.RejectReason = &reason
		}
		o.ReturnRequest = req
	}

	return &o, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (r *repository) lockOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*Order, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`,
		orderID,
	)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	items, err := r.loadItems(ctx, tx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]

	return o, nil
}

func (r *repository) saveOrder(ctx context.Context, tx *sql.Tx, o *Order) error {
	var (
		paymentRef        *string
		paymentStatus     *string
		paymentUpdateTime *string
		payerEmail        *string

		returnStatus       *string
		returnReason       *string
		returnRequestedAt  *time.Time
		returnRejectReason *string
	)

	if o.PaymentResult != nil {
		paymentRef = &o.PaymentResult.ID
		paymentStatus = &o.PaymentResult.Status
		paymentUpdateTime = &o.PaymentResult.UpdateTime
		payerEmail = &o.PaymentResult.PayerEmail
	}
	if o.ReturnRequest != nil {
		s := string(o.ReturnRequest.Status)
		returnStatus = &s
		returnReason = &o.ReturnRequest.Reason
		returnRequestedAt = &o.ReturnRequest.RequestedAt
		returnRejectReason = o.ReturnRequest.RejectReason
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET
			status = $1,
			payment_ref = $2, payment_status = $3,
			payment_update_time = $4, payer_email = $5,
			paid_at = $6, shipped_at = $7, delivered_at = $8, refunded_at = $9,
			return_status = $10, return_reason = $11,
			return_requested_at = $12, return_reject_reason = $13,
			updated_at = NOW()
		WHERE id = $14
	`,
		o.Status,
		paymentRef, paymentStatus, paymentUpdateTime, payerEmail,
		o.PaidAt, o.ShippedAt, o.DeliveredAt, o.RefundedAt,
		returnStatus, returnReason, returnRequestedAt, returnRejectReason,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	return nil
}

func (r *repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		orderID,
	)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	items, err := r.loadItems(ctx, r.db, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]

	return o, nil
}

func (r *repository) ListOrdersForBuyer(ctx context.Context, buyerID uint) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

func (r *repository) ListOrders(ctx context.Context, filter *FilterInput, limit, page int32) ([]*Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListOrders"),
		zap.Int32("limit", limit),
		zap.Int32("page", page),
	)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}
	argIndex := 1

	if filter != nil {
		if filter.Status != nil {
			query += fmt.Sprintf(" AND status = $%d", argIndex)
			args = append(args, *filter.Status)
			argIndex++
		}
		if filter.BuyerID != nil {
			query += fmt.Sprintf(" AND buyer_id = $%d", argIndex)
			args = append(args, *filter.BuyerID)
			argIndex++
		}
		if filter.DateFrom != nil {
			query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
			args = append(args, *filter.DateFrom)
			argIndex++
		}
		if filter.DateTo != nil {
			query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
			args = append(args, *filter.DateTo)
			argIndex++
		}
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		return nil, err
	}

	log.Debug("orders listed", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) collectOrders(ctx context.Context, rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	var ids []uuid.UUID

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}

	return orders, nil
}

func (r *repository) loadItems(ctx context.Context, q dbtx, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	ids := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		ids = append(ids, id.String())
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]Item)
	for rows.Next() {
		var item Item
		var unitPrice int64
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &unitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.UnitPrice = money.Money(unitPrice)
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

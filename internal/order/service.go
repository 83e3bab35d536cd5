package order

import (
	"context"
	"fmt"
	"time"

	"tradehub-be/internal/logger"
	"tradehub-be/internal/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemInput is one line of a checkout request. Name and unit price become
// the immutable snapshot on the stored order.
type ItemInput struct {
	ProductID string
	Name      string
	UnitPrice money.Money
	Quantity  int
}

type CreateInput struct {
	BuyerID         uint
	Items           []ItemInput
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsPrice      money.Money
	ShippingPrice   money.Money
	TaxPrice        money.Money
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, receipt PaymentReceipt) (*Order, error)
	ConfirmShipment(ctx context.Context, orderID uuid.UUID) (*Order, error)
	ConfirmDelivery(ctx context.Context, orderID uuid.UUID) (*Order, error)
	RequestReturn(ctx context.Context, orderID uuid.UUID, reason string) (*Order, error)
	DecideReturn(ctx context.Context, orderID uuid.UUID, decision Decision, rejectReason string) (*Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*Order, error)
	ListForBuyer(ctx context.Context, buyerID uint) ([]*Order, error)
	List(ctx context.Context, filter *FilterInput, limit, page int32) ([]*Order, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// NewServiceWithClock injects the time source, used by the return-window
// tests.
func NewServiceWithClock(repo Repository, now func() time.Time) Service {
	return &service{repo: repo, now: now}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
		zap.Uint("buyer_id", input.BuyerID),
		zap.Int("item_count", len(input.Items)),
	)

	if len(input.Items) == 0 {
		log.Warn("rejected order without items")
		return nil, ErrEmptyOrder
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: product %s", ErrNegativePrice, item.ProductID)
		}
	}
	if input.ItemsPrice.IsNegative() || input.ShippingPrice.IsNegative() || input.TaxPrice.IsNegative() {
		return nil, ErrNegativePrice
	}

	base := input.ItemsPrice.Add(input.ShippingPrice).Add(input.TaxPrice)
	fee := money.PlatformFee(base)

	now := s.now()
	o := &Order{
		ID:              uuid.New(),
		BuyerID:         input.BuyerID,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		ItemsPrice:      input.ItemsPrice,
		ShippingPrice:   input.ShippingPrice,
		TaxPrice:        input.TaxPrice,
		PlatformFee:     fee,
		TotalPrice:      base.Add(fee),
		Status:          StatusCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range input.Items {
		o.Items = append(o.Items, Item{
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	log = log.With(zap.String("order_id", o.ID.String()))
	log.Debug("order priced",
		zap.Int64("base", int64(base)),
		zap.Int64("platform_fee", int64(fee)),
		zap.Int64("total", int64(o.TotalPrice)),
	)

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	log.Info("order created")
	return o, nil
}

func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID, receipt PaymentReceipt) (*Order, error) {
	return s.repo.ConfirmPayment(ctx, orderID, receipt, s.now())
}

func (s *service) ConfirmShipment(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.ConfirmShipment(ctx, orderID, s.now())
}

func (s *service) ConfirmDelivery(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.ConfirmDelivery(ctx, orderID, s.now())
}

func (s *service) RequestReturn(ctx context.Context, orderID uuid.UUID, reason string) (*Order, error) {
	return s.repo.RequestReturn(ctx, orderID, reason, s.now())
}

func (s *service) DecideReturn(ctx context.Context, orderID uuid.UUID, decision Decision, rejectReason string) (*Order, error) {
	switch decision {
	case DecisionApprove:
		return s.repo.ApproveReturn(ctx, orderID, s.now())
	case DecisionReject:
		return s.repo.RejectReturn(ctx, orderID, rejectReason)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uint) ([]*Order, error) {
	return s.repo.ListOrdersForBuyer(ctx, buyerID)
}

func (s *service) List(ctx context.Context, filter *FilterInput, limit, page int32) ([]*Order, error) {
	return s.repo.ListOrders(ctx, filter, limit, page)
}

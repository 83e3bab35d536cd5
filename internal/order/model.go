package order

import (
	"fmt"
	"time"

	"tradehub-be/internal/money"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusPaid            Status = "PAID"
	StatusShipped         Status = "SHIPPED"
	StatusDelivered       Status = "DELIVERED"
	StatusReturnRequested Status = "RETURN_REQUESTED"
	StatusReturnRejected  Status = "RETURN_REJECTED"
	StatusRefunded        Status = "REFUNDED"
)

type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "PENDING"
	ReturnStatusApproved ReturnStatus = "APPROVED"
	ReturnStatusRejected ReturnStatus = "REJECTED"
)

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Item is a line of the order with the product name and unit price frozen
// at creation time. Catalog price changes never touch past orders.
type Item struct {
	ID        uint
	OrderID   uuid.UUID
	ProductID string
	Name      string
	UnitPrice money.Money
	Quantity  int
}

type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// PaymentReceipt holds the opaque provider fields attached exactly once at
// the Paid transition.
type PaymentReceipt struct {
	ID         string
	Status     string
	UpdateTime string
	PayerEmail string
}

type ReturnRequest struct {
	Reason       string
	Status       ReturnStatus
	RequestedAt  time.Time
	RejectReason *string
}

// Order is the aggregate root. Status only moves forward; the return path
// is the single branch, and Refunded is terminal.
type Order struct {
	ID              uuid.UUID
	BuyerID         uint
	Items           []Item
	ShippingAddress ShippingAddress
	PaymentMethod   string

	ItemsPrice    money.Money
	ShippingPrice money.Money
	TaxPrice      money.Money
	PlatformFee   money.Money
	// TotalPrice is fee-inclusive; the pre-fee figure is not retained.
	TotalPrice money.Money

	Status        Status
	PaymentResult *PaymentReceipt
	PaidAt        *time.Time
	ShippedAt     *time.Time
	DeliveredAt   *time.Time
	RefundedAt    *time.Time
	ReturnRequest *ReturnRequest

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Order) transitionErr() error {
	return fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, o.ID, o.Status)
}

// MarkPaid attaches the payment receipt and moves the order to Paid.
func (o *Order) MarkPaid(receipt PaymentReceipt, now time.Time) error {
	if o.Status != StatusCreated {
		return o.transitionErr()
	}

	o.Status = StatusPaid
	o.PaymentResult = &receipt
	o.PaidAt = &now
	return nil
}

// MarkShipped records the shipment timestamp.
func (o *Order) MarkShipped(now time.Time) error {
	if o.Status != StatusPaid {
		return o.transitionErr()
	}

	o.Status = StatusShipped
	o.ShippedAt = &now
	return nil
}

// MarkDelivered sets the delivery timestamp. Accepted from Paid as well as
// Shipped, so sellers without a shipment scan event can still deliver.
func (o *Order) MarkDelivered(now time.Time) error {
	if o.Status != StatusPaid && o.Status != StatusShipped {
		return o.transitionErr()
	}

	o.Status = StatusDelivered
	o.DeliveredAt = &now
	return nil
}

// OpenReturn creates the pending return request. It requires a delivered
// order, no prior request, and a timestamp inside the return window.
func (o *Order) OpenReturn(reason string, now time.Time) error {
	if o.ReturnRequest != nil {
		return fmt.Errorf("%w: order %s", ErrReturnAlreadyRequested, o.ID)
	}
	if o.Status != StatusDelivered || o.DeliveredAt == nil {
		return o.transitionErr()
	}
	if !ReturnEligible(*o.DeliveredAt, now) {
		return fmt.Errorf("%w: order %s delivered at %s", ErrReturnWindowExpired, o.ID, o.DeliveredAt.Format(time.RFC3339))
	}

	o.Status = StatusReturnRequested
	o.ReturnRequest = &ReturnRequest{
		Reason:      reason,
		Status:      ReturnStatusPending,
		RequestedAt: now,
	}
	return nil
}

// ApproveReturn settles a pending return: the request is approved and the
// order becomes Refunded in the same step.
func (o *Order) ApproveReturn(now time.Time) error {
	if err := o.requirePendingReturn(); err != nil {
		return err
	}

	o.ReturnRequest.Status = ReturnStatusApproved
	o.Status = StatusRefunded
	o.RefundedAt = &now
	return nil
}

// RejectReturn closes a pending return with a reason. The request is
// terminal; the buyer cannot re-request.
func (o *Order) RejectReturn(reason string) error {
	if err := o.requirePendingReturn(); err != nil {
		return err
	}

	o.ReturnRequest.Status = ReturnStatusRejected
	if reason != "" {
		o.ReturnRequest.RejectReason = &reason
	}
	o.Status = StatusReturnRejected
	return nil
}

func (o *Order) requirePendingReturn() error {
	if o.ReturnRequest == nil || o.ReturnRequest.Status != ReturnStatusPending {
		return fmt.Errorf("%w: order %s is %s", ErrNoActiveReturnRequest, o.ID, o.Status)
	}
	return nil
}

// RefundAmount is what an approved return credits back to the buyer's
// wallet: the full total minus the platform fee, which the marketplace
// keeps.
func (o *Order) RefundAmount() money.Money {
	refund, err := o.TotalPrice.Sub(o.PlatformFee)
	if err != nil {
		return 0
	}
	return refund
}

package order

import "errors"

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrEmptyOrder             = errors.New("order has no items")
	ErrInvalidQuantity        = errors.New("item quantity must be greater than zero")
	ErrNegativePrice          = errors.New("price components must not be negative")
	ErrInvalidTransition      = errors.New("invalid order transition")
	ErrReturnWindowExpired    = errors.New("return window expired")
	ErrReturnAlreadyRequested = errors.New("return already requested")
	ErrNoActiveReturnRequest  = errors.New("no active return request")
	ErrInvalidDecision        = errors.New("invalid return decision")
)

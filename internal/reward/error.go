package reward

import "errors"

var (
	ErrAccountNotFound     = errors.New("reward account not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInsufficientPoints  = errors.New("insufficient points")
)

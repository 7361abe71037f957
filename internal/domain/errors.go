package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateEvent    = errors.New("duplicate event")
)

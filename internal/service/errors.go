package service

import "errors"

// Caller-correctable conditions. Every failed operation leaves the
// persisted state untouched.
var (
	// ErrOutOfStock: requested quantity exceeds current inventory.
	ErrOutOfStock = errors.New("out of stock")

	// ErrNotFound: unknown transaction id, flavor or consignee name.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount: non-positive payment amount.
	ErrInvalidAmount = errors.New("payment amount must be greater than 0")

	// ErrExceedsDebt: payment greater than the consignee's outstanding debt.
	ErrExceedsDebt = errors.New("payment exceeds total debt")
)

package order

import "errors"

// Request-rejection errors returned by the order engine. Each one is scoped to
// a single request; none is fatal to the process.
var (
	ErrItemNotFound        = errors.New("menu item not found")
	ErrItemUnavailable     = errors.New("menu item not available")
	ErrInvalidDiscount     = errors.New("discount exceeds subtotal")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAlreadyPaid         = errors.New("order already paid")
	ErrInsufficientPayment = errors.New("amount paid is less than order total")
	ErrInvalidTransition   = errors.New("invalid status transition")

	// ErrVersionConflict means a concurrent update won the optimistic version
	// check; the caller should re-read and retry.
	ErrVersionConflict = errors.New("order was modified concurrently")
)

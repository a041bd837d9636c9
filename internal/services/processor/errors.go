package processor

import "errors"

// Validation errors, rejected before any state access.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
	ErrDescriptionTooLong  = errors.New("description too long")
)

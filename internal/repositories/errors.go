package repositories

import "errors"

// Storage errors
var (
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrWalletClosed           = errors.New("wallet is closed")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrTransientConflict      = errors.New("concurrent update conflict")
	ErrInvalidStateTransition = errors.New("invalid transaction state transition")
	ErrRecordNotFound         = errors.New("transaction record not found")
)

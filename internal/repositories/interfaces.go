package repositories

import (
	"context"
	"time"

	"fluxpay/internal/models"

	"github.com/shopspring/decimal"
)

// WalletRepository owns balance state. The mutators must only be called from
// inside a unit-of-work scope; the repository itself does not sequence the
// two legs of a transfer.
type WalletRepository interface {
	// GetByUserID returns the wallet with its balance entries.
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetByUserIDForUpdate locks the wallet row for the enclosing transaction.
	GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetOrCreate returns the user's wallet, creating it with a zero USD
	// entry when the user has never transacted. The row is locked when
	// called inside a transaction scope.
	GetOrCreate(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetBalance returns zero for a missing currency entry and
	// ErrWalletNotFound when the user has no wallet at all.
	GetBalance(ctx context.Context, userID uint, currency string) (decimal.Decimal, error)
	GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error)
	// Credit adds amount to the wallet's currency entry, creating the entry
	// at zero first if absent. Returns the new balance.
	Credit(ctx context.Context, wallet *models.Wallet, currency string, amount decimal.Decimal) (decimal.Decimal, error)
	// Debit subtracts amount, failing with ErrInsufficientFunds when the
	// result would go negative. Never partially applies.
	Debit(ctx context.Context, wallet *models.Wallet, currency string, amount decimal.Decimal) (decimal.Decimal, error)
	// BumpVersion performs the optimistic version check for the wallet.
	// A concurrent writer surfaces as ErrTransientConflict.
	BumpVersion(ctx context.Context, wallet *models.Wallet) error
	// Close soft-deletes the wallet. Historical records keep referencing it.
	Close(ctx context.Context, userID uint) error
}

// TransactionFilter narrows a history query. Nil / zero fields are ignored.
type TransactionFilter struct {
	UserID         *uint
	Kind           string
	Flagged        *bool
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
}

// TransactionRepository owns the append-only record set.
type TransactionRepository interface {
	// Append stores a new pending record and fills in its ID.
	Append(ctx context.Context, rec *models.TransactionRecord) error
	// Finalize transitions exactly one record from pending to a terminal
	// status. Any other transition is ErrInvalidStateTransition.
	Finalize(ctx context.Context, id uint, status string) error
	GetByReference(ctx context.Context, reference string) (*models.TransactionRecord, error)
	// Query returns records newest first plus the total match count.
	Query(ctx context.Context, filter TransactionFilter, limit, offset int) ([]models.TransactionRecord, int64, error)
	// CountRecent counts non-deleted records where the user is source or
	// destination, created at or after since.
	CountRecent(ctx context.Context, userID uint, since time.Time) (int64, error)
	// SumRecent returns count and amount total of the user's non-deleted
	// records of the given kind created at or after since.
	SumRecent(ctx context.Context, userID uint, kind string, since time.Time) (int64, decimal.Decimal, error)
	// ListWindow returns all non-deleted records created in [start, end).
	ListWindow(ctx context.Context, start, end time.Time) ([]models.TransactionRecord, error)
}

// UnitOfWork exposes the repositories bound to one atomic scope.
type UnitOfWork interface {
	Wallets() WalletRepository
	Transactions() TransactionRepository
}

// Datastore is a UnitOfWork factory. ExecuteInTransaction runs fn inside a
// single store transaction: everything fn does commits or rolls back as one
// unit.
type Datastore interface {
	UnitOfWork
	ExecuteInTransaction(ctx context.Context, fn func(UnitOfWork) error) error
}

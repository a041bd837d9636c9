package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Store binds the repositories to one gorm handle and implements Datastore.
// ExecuteInTransaction is the unit-of-work primitive: the ledger mutation(s)
// and the log append of one operation commit or roll back together.
type Store struct {
	db           *gorm.DB
	wallets      WalletRepository
	transactions TransactionRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		wallets:      NewWalletRepository(db),
		transactions: NewTransactionRepository(db),
	}
}

func (s *Store) Wallets() WalletRepository { return s.wallets }

func (s *Store) Transactions() TransactionRepository { return s.transactions }

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(UnitOfWork) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	if err != nil && isSerializationFailure(err) {
		return ErrTransientConflict
	}
	return err
}

// isSerializationFailure recognizes postgres commit rejections caused by a
// conflicting concurrent write (serialization failures and deadlocks).
func isSerializationFailure(err error) bool {
	if errors.Is(err, ErrTransientConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 40001") || strings.Contains(msg, "SQLSTATE 40P01")
}

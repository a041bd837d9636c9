// Package ledger is the read side of the wallet ledger: balance lookups,
// transaction history and wallet closure. Balance mutations happen only
// through the transaction processor's atomic scope.
package ledger

import (
	"context"
	"fmt"
	"log"

	"fluxpay/internal/models"
	"fluxpay/internal/repositories"

	"github.com/shopspring/decimal"
)

// BalanceCache is the cache-aside store for wallet balances.
type BalanceCache interface {
	GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error)
	SetBalances(ctx context.Context, userID uint, balances []models.WalletBalance) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

type Service interface {
	GetBalance(ctx context.Context, userID uint, currency string) (decimal.Decimal, error)
	GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error)
	History(ctx context.Context, filter repositories.TransactionFilter, limit, offset int) ([]models.TransactionRecord, int64, error)
	CloseWallet(ctx context.Context, userID uint) error
}

type service struct {
	store repositories.Datastore
	cache BalanceCache
}

func NewService(store repositories.Datastore, cache BalanceCache) Service {
	if store == nil {
		panic("store is required")
	}
	return &service{store: store, cache: cache}
}

func (s *service) GetBalance(ctx context.Context, userID uint, currency string) (decimal.Decimal, error) {
	return s.store.Wallets().GetBalance(ctx, userID, currency)
}

func (s *service) GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error) {
	if s.cache != nil {
		if balances, err := s.cache.GetBalances(ctx, userID); err == nil {
			return balances, nil
		}
	}

	balances, err := s.store.Wallets().GetBalances(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBalances(ctx, userID, balances); err != nil {
			log.Printf("ledger: failed to cache balances for user %d: %v", userID, err)
		}
	}
	return balances, nil
}

func (s *service) History(ctx context.Context, filter repositories.TransactionFilter, limit, offset int) ([]models.TransactionRecord, int64, error) {
	return s.store.Transactions().Query(ctx, filter, limit, offset)
}

func (s *service) CloseWallet(ctx context.Context, userID uint) error {
	if err := s.store.Wallets().Close(ctx, userID); err != nil {
		return fmt.Errorf("failed to close wallet: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateWallet(ctx, userID); err != nil {
			log.Printf("ledger: failed to invalidate cache for user %d: %v", userID, err)
		}
	}
	return nil
}

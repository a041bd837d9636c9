package ledger

import (
	"context"
	"errors"
	"testing"

	"fluxpay/internal/models"
	"fluxpay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWallets struct {
	repositories.WalletRepository

	balances  []models.WalletBalance
	getErr    error
	closeErr  error
	closed    []uint
	readCount int
}

func (s *stubWallets) GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error) {
	s.readCount++
	return s.balances, s.getErr
}

func (s *stubWallets) GetBalance(ctx context.Context, userID uint, currency string) (decimal.Decimal, error) {
	for _, b := range s.balances {
		if b.Currency == currency {
			return b.Amount, nil
		}
	}
	return decimal.Zero, s.getErr
}

func (s *stubWallets) Close(ctx context.Context, userID uint) error {
	if s.closeErr != nil {
		return s.closeErr
	}
	s.closed = append(s.closed, userID)
	return nil
}

type stubStore struct {
	wallets *stubWallets
}

func (s *stubStore) Wallets() repositories.WalletRepository { return s.wallets }

func (s *stubStore) Transactions() repositories.TransactionRepository { return nil }

func (s *stubStore) ExecuteInTransaction(ctx context.Context, fn func(repositories.UnitOfWork) error) error {
	return fn(s)
}

type stubCache struct {
	balances    map[uint][]models.WalletBalance
	sets        int
	invalidated []uint
}

func newStubCache() *stubCache {
	return &stubCache{balances: make(map[uint][]models.WalletBalance)}
}

func (c *stubCache) GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error) {
	if b, ok := c.balances[userID]; ok {
		return b, nil
	}
	return nil, errors.New("cache miss")
}

func (c *stubCache) SetBalances(ctx context.Context, userID uint, balances []models.WalletBalance) error {
	c.sets++
	c.balances[userID] = balances
	return nil
}

func (c *stubCache) InvalidateWallet(ctx context.Context, userID uint) error {
	c.invalidated = append(c.invalidated, userID)
	delete(c.balances, userID)
	return nil
}

func usd(amount int64) []models.WalletBalance {
	return []models.WalletBalance{{Currency: "USD", Amount: decimal.NewFromInt(amount)}}
}

func TestGetBalances_CacheMissReadsStoreAndFills(t *testing.T) {
	wallets := &stubWallets{balances: usd(100)}
	cache := newStubCache()
	svc := NewService(&stubStore{wallets: wallets}, cache)

	balances, err := svc.GetBalances(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, wallets.readCount)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from cache.
	_, err = svc.GetBalances(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, wallets.readCount)
}

func TestGetBalances_NoCache(t *testing.T) {
	wallets := &stubWallets{balances: usd(42)}
	svc := NewService(&stubStore{wallets: wallets}, nil)

	balances, err := svc.GetBalances(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Amount.Equal(decimal.NewFromInt(42)))
}

func TestGetBalances_MissingWallet(t *testing.T) {
	wallets := &stubWallets{getErr: repositories.ErrWalletNotFound}
	svc := NewService(&stubStore{wallets: wallets}, newStubCache())

	_, err := svc.GetBalances(context.Background(), 9)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
}

func TestCloseWallet(t *testing.T) {
	wallets := &stubWallets{balances: usd(0)}
	cache := newStubCache()
	cache.balances[1] = usd(0)
	svc := NewService(&stubStore{wallets: wallets}, cache)

	require.NoError(t, svc.CloseWallet(context.Background(), 1))
	assert.Equal(t, []uint{1}, wallets.closed)
	assert.Equal(t, []uint{1}, cache.invalidated)
}

func TestCloseWallet_MissingWallet(t *testing.T) {
	wallets := &stubWallets{closeErr: repositories.ErrWalletNotFound}
	svc := NewService(&stubStore{wallets: wallets}, newStubCache())

	err := svc.CloseWallet(context.Background(), 9)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
	assert.Empty(t, wallets.closed)
}

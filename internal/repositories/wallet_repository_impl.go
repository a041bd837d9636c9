package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fluxpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Preload("Balances").
		Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, r.missingWalletError(ctx, userID)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, r.missingWalletError(ctx, userID)
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if err := r.db.WithContext(ctx).Where("wallet_id = ?", wallet.ID).
		Find(&wallet.Balances).Error; err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetOrCreate(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := r.GetByUserIDForUpdate(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	created := &models.Wallet{
		UserID: userID,
		Status: models.WalletStatusActive,
		Balances: []models.WalletBalance{
			{Currency: "USD", Amount: decimal.Zero},
		},
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// A concurrent request may have seeded the wallet first.
		if isUniqueViolation(err) {
			return nil, ErrTransientConflict
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return created, nil
}

func (r *walletRepository) GetBalance(ctx context.Context, userID uint, currency string) (decimal.Decimal, error) {
	wallet, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.BalanceFor(currency), nil
}

func (r *walletRepository) GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error) {
	wallet, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return wallet.Balances, nil
}

func (r *walletRepository) Credit(ctx context.Context, wallet *models.Wallet, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	if wallet.Status != models.WalletStatusActive {
		return decimal.Zero, ErrWalletClosed
	}

	entry := models.WalletBalance{WalletID: wallet.ID, Currency: currency}
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND currency = ?", wallet.ID, currency).
		Attrs(models.WalletBalance{Amount: decimal.Zero}).
		FirstOrCreate(&entry).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to seed balance entry: %w", err)
	}

	res := r.db.WithContext(ctx).Model(&models.WalletBalance{}).
		Where("wallet_id = ? AND currency = ?", wallet.ID, currency).
		Updates(map[string]interface{}{
			"amount":     gorm.Expr("amount + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrTransientConflict
	}
	return r.readBalance(ctx, wallet.ID, currency)
}

func (r *walletRepository) Debit(ctx context.Context, wallet *models.Wallet, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	if wallet.Status != models.WalletStatusActive {
		return decimal.Zero, ErrWalletClosed
	}

	// The amount guard in the WHERE clause makes the debit atomic: the row
	// is only touched when the resulting balance stays non-negative.
	res := r.db.WithContext(ctx).Model(&models.WalletBalance{}).
		Where("wallet_id = ? AND currency = ? AND amount >= ?", wallet.ID, currency, amount).
		Updates(map[string]interface{}{
			"amount":     gorm.Expr("amount - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("failed to debit wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrInsufficientFunds
	}
	return r.readBalance(ctx, wallet.ID, currency)
}

func (r *walletRepository) BumpVersion(ctx context.Context, wallet *models.Wallet) error {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to bump wallet version: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTransientConflict
	}
	wallet.Version++
	return nil
}

func (r *walletRepository) Close(ctx context.Context, userID uint) error {
	wallet, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Update("status", models.WalletStatusClosed).Error
	if err != nil {
		return fmt.Errorf("failed to close wallet: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&models.Wallet{}, wallet.ID).Error; err != nil {
		return fmt.Errorf("failed to soft-delete wallet: %w", err)
	}
	return nil
}

// missingWalletError distinguishes a wallet that never existed from one that
// was closed and soft-deleted. A closed wallet stays invisible to the default
// scope but keeps its user_id row; treating the miss as "not found" would let
// GetOrCreate race the unique index forever.
func (r *walletRepository) missingWalletError(ctx context.Context, userID uint) error {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Wallet{}).
		Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check wallet existence: %w", err)
	}
	if count > 0 {
		return ErrWalletClosed
	}
	return ErrWalletNotFound
}

func (r *walletRepository) readBalance(ctx context.Context, walletID uint, currency string) (decimal.Decimal, error) {
	var entry models.WalletBalance
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND currency = ?", walletID, currency).
		First(&entry).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return entry.Amount, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key"))
}

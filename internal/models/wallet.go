package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet statuses
const (
	WalletStatusActive = "active"
	WalletStatusClosed = "closed"
)

// Wallet holds all currency balances for a single user. Wallets are created
// lazily on first use and soft-deleted on account closure so historical
// transactions keep a valid owner reference.
type Wallet struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	Status    string `gorm:"default:'active'"`
	Version   uint   `gorm:"not null;default:0"`
	Balances  []WalletBalance
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// WalletBalance is one (currency, amount) entry of a wallet. A missing row is
// equivalent to a zero balance. Amount is never negative.
type WalletBalance struct {
	ID        uint            `gorm:"primarykey"`
	WalletID  uint            `gorm:"uniqueIndex:idx_wallet_currency;not null"`
	Currency  string          `gorm:"uniqueIndex:idx_wallet_currency;size:8;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.Status == "" {
		w.Status = WalletStatusActive
	}
	return nil
}

// BalanceFor returns the amount held in the given currency, zero if absent.
func (w *Wallet) BalanceFor(currency string) decimal.Decimal {
	for _, b := range w.Balances {
		if b.Currency == currency {
			return b.Amount
		}
	}
	return decimal.Zero
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction kinds
const (
	KindDeposit    = "deposit"
	KindWithdrawal = "withdrawal"
	KindTransfer   = "transfer"
)

// Transaction statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Flag reasons. A record carries at most one; the empty string means the
// operation was not flagged.
const (
	FlagReasonHighFrequency     = "high_frequency"
	FlagReasonLargeAmount       = "large_amount"
	FlagReasonSuspiciousPattern = "suspicious_pattern"
	FlagReasonManualReview      = "manual_review"
)

// TransactionRecord is one completed or failed attempt to move money.
// A transfer carries both participants, a deposit only the destination and a
// withdrawal only the source. Once completed, amount, currency and the
// participants never change; only soft-delete metadata may.
type TransactionRecord struct {
	ID           uint            `gorm:"primarykey"`
	Reference    string          `gorm:"uniqueIndex;size:64;not null"`
	Kind         string          `gorm:"size:16;not null;index"`
	SourceUserID *uint           `gorm:"index"`
	DestUserID   *uint           `gorm:"index"`
	Amount       decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Currency     string          `gorm:"size:8;not null"`
	Description  string          `gorm:"size:255"`
	Status       string          `gorm:"size:16;not null;default:'pending'"`
	Flagged      bool            `gorm:"not null;default:false"`
	FlagReason   string          `gorm:"size:32"`
	CreatedAt    time.Time       `gorm:"index"`
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// FlagDecision is the fraud engine's verdict on a single operation. It is not
// persisted on its own; it lands on the record the operation produced.
type FlagDecision struct {
	Flagged bool
	Reason  string
}

// Participants returns the distinct user IDs referenced by the record.
func (r *TransactionRecord) Participants() []uint {
	var ids []uint
	if r.SourceUserID != nil {
		ids = append(ids, *r.SourceUserID)
	}
	if r.DestUserID != nil && (r.SourceUserID == nil || *r.DestUserID != *r.SourceUserID) {
		ids = append(ids, *r.DestUserID)
	}
	return ids
}

package processor

import (
	"context"
	"time"

	"fluxpay/internal/models"

	"github.com/shopspring/decimal"
)

// DepositRequest credits a user's wallet.
type DepositRequest struct {
	UserID      uint
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// WithdrawRequest debits a user's wallet.
type WithdrawRequest struct {
	UserID      uint
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// TransferRequest moves funds between two different users.
type TransferRequest struct {
	SourceUserID uint
	DestUserID   uint
	Amount       decimal.Decimal
	Currency     string
	Description  string
}

// Outcome is the committed result of one operation. NewBalance is the acting
// user's balance after commit (destination for deposits, source otherwise);
// DestBalance is set for transfers.
type Outcome struct {
	RecordID    uint
	Reference   string
	Kind        string
	Amount      decimal.Decimal
	Currency    string
	Status      string
	Flagged     bool
	FlagReason  string
	NewBalance  decimal.Decimal
	DestBalance *decimal.Decimal
}

// Config tunes the processor.
//
// RecordRejected keeps a failed record for withdrawals rejected on
// insufficient funds. Off by default: no funds moved, no audit trail is
// mandated for attempts.
type Config struct {
	MaxRetries     int
	RecordRejected bool
}

// FraudEvaluator is the advisory rule engine consulted before each
// operation's atomic scope.
type FraudEvaluator interface {
	Evaluate(ctx context.Context, userID uint, kind string, amount decimal.Decimal, now time.Time) models.FlagDecision
}

// CacheInvalidator drops cached balances for wallets touched by a commit.
type CacheInvalidator interface {
	InvalidateWallet(ctx context.Context, userID uint) error
}

// MetricsCollector receives operation metrics.
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordFlagged(reason string)
	RecordError(operation, errType string)
}

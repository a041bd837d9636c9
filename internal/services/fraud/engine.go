// Package fraud evaluates heuristic rules against recent transaction
// history. The engine is a pure read-side function: it never mutates state
// and a flagged verdict never blocks the operation that triggered it.
package fraud

import (
	"context"
	"log"
	"time"

	"fluxpay/internal/models"

	"github.com/shopspring/decimal"
)

// HistoryReader is the slice of the transaction log the rules read.
// Slight staleness is acceptable; the reads hold no lock.
type HistoryReader interface {
	CountRecent(ctx context.Context, userID uint, since time.Time) (int64, error)
	SumRecent(ctx context.Context, userID uint, kind string, since time.Time) (int64, decimal.Decimal, error)
}

// Config holds the rule thresholds. It is fixed at construction; there is no
// shared mutable rule state.
type Config struct {
	HighFrequencyCount  int64
	HighFrequencyWindow time.Duration
	LargeAmount         decimal.Decimal
	WithdrawalCount     int64
	WithdrawalTotal     decimal.Decimal
	WithdrawalWindow    time.Duration
}

func DefaultConfig() Config {
	return Config{
		HighFrequencyCount:  5,
		HighFrequencyWindow: time.Hour,
		LargeAmount:         decimal.NewFromInt(10000),
		WithdrawalCount:     3,
		WithdrawalTotal:     decimal.NewFromInt(5000),
		WithdrawalWindow:    time.Hour,
	}
}

type Engine struct {
	history HistoryReader
	config  Config
}

func NewEngine(history HistoryReader, config Config) *Engine {
	if history == nil {
		panic("history reader is required")
	}
	return &Engine{history: history, config: config}
}

// Evaluate runs the rules in strict order; the first match wins. The rules
// run before the operation's own record is persisted, so the candidate
// amount is judged against history only.
//
// Evaluation failure degrades to "not flagged": availability of money
// movement wins over fraud-detection completeness.
func (e *Engine) Evaluate(ctx context.Context, userID uint, kind string, amount decimal.Decimal, now time.Time) models.FlagDecision {
	count, err := e.history.CountRecent(ctx, userID, now.Add(-e.config.HighFrequencyWindow))
	if err != nil {
		log.Printf("fraud: high-frequency check failed for user %d: %v", userID, err)
		return models.FlagDecision{}
	}
	if count >= e.config.HighFrequencyCount {
		return models.FlagDecision{Flagged: true, Reason: models.FlagReasonHighFrequency}
	}

	if amount.GreaterThanOrEqual(e.config.LargeAmount) {
		return models.FlagDecision{Flagged: true, Reason: models.FlagReasonLargeAmount}
	}

	if kind == models.KindWithdrawal {
		wCount, wTotal, err := e.history.SumRecent(ctx, userID, models.KindWithdrawal, now.Add(-e.config.WithdrawalWindow))
		if err != nil {
			log.Printf("fraud: withdrawal-pattern check failed for user %d: %v", userID, err)
			return models.FlagDecision{}
		}
		if wCount >= e.config.WithdrawalCount && wTotal.GreaterThanOrEqual(e.config.WithdrawalTotal) {
			return models.FlagDecision{Flagged: true, Reason: models.FlagReasonSuspiciousPattern}
		}
	}

	return models.FlagDecision{}
}

package processor

import (
	"context"
	"errors"
	"log"
	"time"

	"fluxpay/internal/models"
	"fluxpay/internal/repositories"
	"fluxpay/internal/services/alert"
	"fluxpay/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxRetries = 3
	alertTimeout      = 5 * time.Second
)

// Service processes deposit, withdrawal and transfer operations.
type Service interface {
	Deposit(ctx context.Context, req DepositRequest) (*Outcome, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*Outcome, error)
	Transfer(ctx context.Context, req TransferRequest) (*Outcome, error)
}

type service struct {
	store   repositories.Datastore
	fraud   FraudEvaluator
	alerts  alert.Dispatcher
	cache   CacheInvalidator
	metrics MetricsCollector
	config  Config
	now     func() time.Time
}

// NewService creates a new transaction processor.
func NewService(
	store repositories.Datastore,
	fraud FraudEvaluator,
	alerts alert.Dispatcher,
	cache CacheInvalidator,
	metrics MetricsCollector,
	config Config,
) Service {
	if store == nil {
		panic("store is required")
	}
	if fraud == nil {
		panic("fraud evaluator is required")
	}
	if alerts == nil {
		alerts = alert.NewLogDispatcher()
	}
	if cache == nil {
		cache = noopCache{}
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &service{
		store:   store,
		fraud:   fraud,
		alerts:  alerts,
		cache:   cache,
		metrics: metrics,
		config:  config,
		now:     time.Now,
	}
}

func (s *service) Deposit(ctx context.Context, req DepositRequest) (*Outcome, error) {
	start := s.now()
	if err := s.validate(req.Amount, req.Currency, req.Description); err != nil {
		s.metrics.RecordError("deposit", "validation")
		return nil, err
	}

	var outcome *Outcome
	err := s.withRetries(ctx, "deposit", func(ctx context.Context) error {
		decision := s.fraud.Evaluate(ctx, req.UserID, models.KindDeposit, req.Amount, s.now())

		return s.store.ExecuteInTransaction(ctx, func(uow repositories.UnitOfWork) error {
			wallet, err := uow.Wallets().GetOrCreate(ctx, req.UserID)
			if err != nil {
				return err
			}
			newBalance, err := uow.Wallets().Credit(ctx, wallet, req.Currency, req.Amount)
			if err != nil {
				return err
			}
			if err := uow.Wallets().BumpVersion(ctx, wallet); err != nil {
				return err
			}

			rec := newRecord(models.KindDeposit, nil, &req.UserID, req.Amount, req.Currency, req.Description, decision)
			if err := commitRecord(ctx, uow, rec); err != nil {
				return err
			}
			outcome = newOutcome(rec, newBalance, nil)
			return nil
		})
	})
	if err != nil {
		s.fail("deposit", err)
		return nil, err
	}

	s.finish(ctx, "deposit", start, outcome, req.UserID)
	return outcome, nil
}

func (s *service) Withdraw(ctx context.Context, req WithdrawRequest) (*Outcome, error) {
	start := s.now()
	if err := s.validate(req.Amount, req.Currency, req.Description); err != nil {
		s.metrics.RecordError("withdrawal", "validation")
		return nil, err
	}

	var outcome *Outcome
	var rejected *models.TransactionRecord
	err := s.withRetries(ctx, "withdrawal", func(ctx context.Context) error {
		decision := s.fraud.Evaluate(ctx, req.UserID, models.KindWithdrawal, req.Amount, s.now())

		return s.store.ExecuteInTransaction(ctx, func(uow repositories.UnitOfWork) error {
			wallet, err := uow.Wallets().GetByUserIDForUpdate(ctx, req.UserID)
			if err != nil {
				return err
			}
			newBalance, err := uow.Wallets().Debit(ctx, wallet, req.Currency, req.Amount)
			if errors.Is(err, repositories.ErrInsufficientFunds) {
				if !s.config.RecordRejected {
					// Nothing moved and nothing is persisted for the attempt.
					return err
				}
				rec := newRecord(models.KindWithdrawal, &req.UserID, nil, req.Amount, req.Currency, req.Description, decision)
				if err := uow.Transactions().Append(ctx, rec); err != nil {
					return err
				}
				if err := uow.Transactions().Finalize(ctx, rec.ID, models.StatusFailed); err != nil {
					return err
				}
				rec.Status = models.StatusFailed
				rejected = rec
				return nil
			}
			if err != nil {
				return err
			}
			if err := uow.Wallets().BumpVersion(ctx, wallet); err != nil {
				return err
			}

			rec := newRecord(models.KindWithdrawal, &req.UserID, nil, req.Amount, req.Currency, req.Description, decision)
			if err := commitRecord(ctx, uow, rec); err != nil {
				return err
			}
			outcome = newOutcome(rec, newBalance, nil)
			return nil
		})
	})
	if err != nil {
		s.fail("withdrawal", err)
		return nil, err
	}
	if rejected != nil {
		s.metrics.RecordError("withdrawal", "insufficient_funds")
		return nil, repositories.ErrInsufficientFunds
	}

	s.finish(ctx, "withdrawal", start, outcome, req.UserID)
	return outcome, nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*Outcome, error) {
	start := s.now()
	if req.SourceUserID == req.DestUserID {
		s.metrics.RecordError("transfer", "self_transfer")
		return nil, ErrSelfTransfer
	}
	if err := s.validate(req.Amount, req.Currency, req.Description); err != nil {
		s.metrics.RecordError("transfer", "validation")
		return nil, err
	}

	var outcome *Outcome
	err := s.withRetries(ctx, "transfer", func(ctx context.Context) error {
		decision := s.fraud.Evaluate(ctx, req.SourceUserID, models.KindTransfer, req.Amount, s.now())

		return s.store.ExecuteInTransaction(ctx, func(uow repositories.UnitOfWork) error {
			// Lock both wallets in ascending user-ID order so two opposing
			// transfers between the same pair cannot deadlock.
			wallets := make(map[uint]*models.Wallet, 2)
			for _, id := range orderedPair(req.SourceUserID, req.DestUserID) {
				w, err := uow.Wallets().GetByUserIDForUpdate(ctx, id)
				if err != nil {
					return err
				}
				wallets[id] = w
			}

			sourceBalance, err := uow.Wallets().Debit(ctx, wallets[req.SourceUserID], req.Currency, req.Amount)
			if err != nil {
				return err
			}
			destBalance, err := uow.Wallets().Credit(ctx, wallets[req.DestUserID], req.Currency, req.Amount)
			if err != nil {
				return err
			}
			for _, id := range orderedPair(req.SourceUserID, req.DestUserID) {
				if err := uow.Wallets().BumpVersion(ctx, wallets[id]); err != nil {
					return err
				}
			}

			rec := newRecord(models.KindTransfer, &req.SourceUserID, &req.DestUserID, req.Amount, req.Currency, req.Description, decision)
			if err := commitRecord(ctx, uow, rec); err != nil {
				return err
			}
			outcome = newOutcome(rec, sourceBalance, &destBalance)
			return nil
		})
	})
	if err != nil {
		s.fail("transfer", err)
		return nil, err
	}

	s.finish(ctx, "transfer", start, outcome, req.SourceUserID, req.DestUserID)
	return outcome, nil
}

// withRetries re-runs the whole attempt, fraud evaluation included, when the
// store rejects a commit because of a conflicting concurrent write.
func (s *service) withRetries(ctx context.Context, op string, attempt func(context.Context) error) error {
	var err error
	for i := 0; i <= s.config.MaxRetries; i++ {
		err = attempt(ctx)
		if !errors.Is(err, repositories.ErrTransientConflict) {
			return err
		}
		log.Printf("processor: %s commit conflicted, retrying (%d/%d)", op, i+1, s.config.MaxRetries)
	}
	return err
}

func (s *service) validate(amount decimal.Decimal, currency, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !validation.IsSupportedCurrency(currency) {
		return ErrUnsupportedCurrency
	}
	if len(description) > validation.MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// finish handles everything after the commit: cache invalidation, metrics
// and the advisory alert. The operation is already irrevocable here.
func (s *service) finish(ctx context.Context, op string, start time.Time, outcome *Outcome, userIDs ...uint) {
	for _, id := range userIDs {
		if err := s.cache.InvalidateWallet(ctx, id); err != nil {
			log.Printf("processor: failed to invalidate wallet cache for user %d: %v", id, err)
		}
	}

	if outcome.Flagged {
		s.metrics.RecordFlagged(outcome.FlagReason)
		actor := userIDs[0]
		details := map[string]string{
			"reference": outcome.Reference,
			"kind":      outcome.Kind,
			"amount":    outcome.Amount.String(),
			"currency":  outcome.Currency,
			"reason":    outcome.FlagReason,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
			defer cancel()
			if err := s.alerts.Notify(ctx, actor, alert.TypeFraudFlag, details); err != nil {
				log.Printf("processor: alert dispatch failed for user %d: %v", actor, err)
			}
		}()
	}

	s.metrics.RecordOperationDuration(op, time.Since(start))
	s.metrics.RecordOperationResult(op, "success")
}

func (s *service) fail(op string, err error) {
	s.metrics.RecordOperationResult(op, "failure")
	s.metrics.RecordError(op, errType(err))
}

func errType(err error) string {
	switch {
	case errors.Is(err, repositories.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, repositories.ErrWalletNotFound):
		return "wallet_not_found"
	case errors.Is(err, repositories.ErrWalletClosed):
		return "wallet_closed"
	case errors.Is(err, repositories.ErrTransientConflict):
		return "transient_conflict"
	case errors.Is(err, repositories.ErrInvalidStateTransition):
		return "invalid_state_transition"
	default:
		return "internal"
	}
}

func newRecord(kind string, source, dest *uint, amount decimal.Decimal, currency, description string, decision models.FlagDecision) *models.TransactionRecord {
	return &models.TransactionRecord{
		Reference:    uuid.NewString(),
		Kind:         kind,
		SourceUserID: source,
		DestUserID:   dest,
		Amount:       amount,
		Currency:     currency,
		Description:  description,
		Flagged:      decision.Flagged,
		FlagReason:   decision.Reason,
	}
}

// commitRecord appends the pending record and finalizes it to completed
// inside the caller's atomic scope.
func commitRecord(ctx context.Context, uow repositories.UnitOfWork, rec *models.TransactionRecord) error {
	if err := uow.Transactions().Append(ctx, rec); err != nil {
		return err
	}
	if err := uow.Transactions().Finalize(ctx, rec.ID, models.StatusCompleted); err != nil {
		return err
	}
	rec.Status = models.StatusCompleted
	return nil
}

func newOutcome(rec *models.TransactionRecord, newBalance decimal.Decimal, destBalance *decimal.Decimal) *Outcome {
	return &Outcome{
		RecordID:    rec.ID,
		Reference:   rec.Reference,
		Kind:        rec.Kind,
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		Status:      rec.Status,
		Flagged:     rec.Flagged,
		FlagReason:  rec.FlagReason,
		NewBalance:  newBalance,
		DestBalance: destBalance,
	}
}

func orderedPair(a, b uint) [2]uint {
	if a < b {
		return [2]uint{a, b}
	}
	return [2]uint{b, a}
}

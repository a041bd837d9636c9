// Package funding is the card top-up front door: it charges an external
// card and, once the charge succeeds, feeds the amount into the transaction
// processor as an ordinary deposit.
package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fluxpay/internal/config"
	"fluxpay/internal/services/processor"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/charge"
)

// Card charges settle in fiat only.
var chargeableCurrencies = map[string]stripe.Currency{
	"USD": stripe.CurrencyUSD,
	"EUR": stripe.CurrencyEUR,
}

var (
	ErrCurrencyNotChargeable = errors.New("currency cannot be funded by card")
	// ErrAmountPrecision rejects amounts the card gateway cannot represent:
	// charges settle in whole cents, and the charged and credited amounts
	// must agree exactly.
	ErrAmountPrecision = errors.New("card amounts support at most two decimal places")
)

type TopUpRequest struct {
	UserID      uint
	CardToken   string
	Amount      decimal.Decimal
	Currency    string
	Description string
}

type Service struct {
	processor processor.Service
}

func NewService(proc processor.Service) *Service {
	if proc == nil {
		panic("processor is required")
	}
	stripe.Key = config.GetEnv("STRIPE_SECRET_KEY", "")
	return &Service{processor: proc}
}

// TopUp charges the card and credits the wallet. The charge is external and
// irrevocable once captured; a deposit failure after a captured charge is
// surfaced for manual reconciliation rather than auto-refunded.
func (s *Service) TopUp(ctx context.Context, req TopUpRequest) (*processor.Outcome, error) {
	cur, ok := chargeableCurrencies[req.Currency]
	if !ok {
		return nil, ErrCurrencyNotChargeable
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, ErrAmountPrecision
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(req.Amount.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency:    stripe.String(string(cur)),
		Description: stripe.String(req.Description),
	}
	if err := params.SetSource(req.CardToken); err != nil {
		return nil, fmt.Errorf("invalid card token: %w", err)
	}
	ch, err := charge.New(params)
	if err != nil {
		return nil, fmt.Errorf("card charge failed: %w", err)
	}

	description := req.Description
	if description == "" {
		description = "Card top-up " + shortChargeID(ch.ID)
	}
	outcome, err := s.processor.Deposit(ctx, processor.DepositRequest{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("charge %s captured but deposit failed, needs reconciliation: %w", ch.ID, err)
	}
	return outcome, nil
}

func shortChargeID(id string) string {
	if i := strings.LastIndex(id, "_"); i >= 0 && len(id)-i > 5 {
		return id[len(id)-4:]
	}
	return id
}

package funding

import (
	"context"
	"testing"

	"fluxpay/internal/services/processor"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type stubProcessor struct {
	deposits int
}

func (s *stubProcessor) Deposit(ctx context.Context, req processor.DepositRequest) (*processor.Outcome, error) {
	s.deposits++
	return &processor.Outcome{}, nil
}

func (s *stubProcessor) Withdraw(ctx context.Context, req processor.WithdrawRequest) (*processor.Outcome, error) {
	return nil, nil
}

func (s *stubProcessor) Transfer(ctx context.Context, req processor.TransferRequest) (*processor.Outcome, error) {
	return nil, nil
}

func TestTopUp_RejectsBeforeCharging(t *testing.T) {
	tests := []struct {
		name    string
		req     TopUpRequest
		wantErr error
	}{
		{
			name:    "crypto cannot be card funded",
			req:     TopUpRequest{UserID: 1, CardToken: "tok", Amount: decimal.NewFromInt(10), Currency: "BTC"},
			wantErr: ErrCurrencyNotChargeable,
		},
		{
			name:    "sub-cent precision",
			req:     TopUpRequest{UserID: 1, CardToken: "tok", Amount: decimal.RequireFromString("10.005"), Currency: "USD"},
			wantErr: ErrAmountPrecision,
		},
		{
			name:    "sub-cent precision with trailing zero",
			req:     TopUpRequest{UserID: 1, CardToken: "tok", Amount: decimal.RequireFromString("10.0050"), Currency: "USD"},
			wantErr: ErrAmountPrecision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &stubProcessor{}
			svc := NewService(proc)

			_, err := svc.TopUp(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, proc.deposits, "rejected top-up must not reach the processor")
		})
	}
}

func TestTopUp_AcceptsWholeCentAmounts(t *testing.T) {
	// 10.50 and 10.500 are the same whole-cent amount; both pass validation.
	for _, raw := range []string{"10.50", "10.500"} {
		amount := decimal.RequireFromString(raw)
		assert.True(t, amount.Equal(amount.Round(2)), raw)
	}
}

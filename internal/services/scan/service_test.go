package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fluxpay/internal/models"
	"fluxpay/internal/services/alert"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLog struct {
	records []models.TransactionRecord
	err     error
	entered chan struct{} // closed when ListWindow is first reached
	block   chan struct{} // when set, ListWindow waits until closed
	once    sync.Once
}

func (s *stubLog) ListWindow(ctx context.Context, start, end time.Time) ([]models.TransactionRecord, error) {
	if s.entered != nil {
		s.once.Do(func() { close(s.entered) })
	}
	if s.block != nil {
		<-s.block
	}
	return s.records, s.err
}

type captureDispatcher struct {
	alerts []uint
}

func (d *captureDispatcher) Notify(ctx context.Context, userID uint, alertType string, details map[string]string) error {
	d.alerts = append(d.alerts, userID)
	return nil
}

func deposit(userID uint) models.TransactionRecord {
	id := userID
	return models.TransactionRecord{
		Kind:       models.KindDeposit,
		DestUserID: &id,
		Amount:     decimal.NewFromInt(1),
		Currency:   "USD",
		Status:     models.StatusCompleted,
	}
}

func transfer(source, dest uint) models.TransactionRecord {
	s, d := source, dest
	return models.TransactionRecord{
		Kind:         models.KindTransfer,
		SourceUserID: &s,
		DestUserID:   &d,
		Amount:       decimal.NewFromInt(1),
		Currency:     "USD",
		Status:       models.StatusCompleted,
	}
}

func TestRun(t *testing.T) {
	// User 1: 21 records, above the threshold. User 2: 19, below.
	var records []models.TransactionRecord
	for i := 0; i < 21; i++ {
		records = append(records, deposit(1))
	}
	for i := 0; i < 19; i++ {
		records = append(records, deposit(2))
	}

	dispatcher := &captureDispatcher{}
	job := NewJob(&stubLog{records: records}, dispatcher, DefaultThreshold)

	start, end := PreviousDayWindow(time.Now())
	report, err := job.Run(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, 40, report.Scanned)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, uint(1), report.Findings[0].UserID)
	assert.Equal(t, 21, report.Findings[0].Count)
	assert.Equal(t, alert.TypeExcessiveDaily, report.Findings[0].Reason)
	assert.Equal(t, []uint{1}, dispatcher.alerts)
}

func TestRun_ExactThresholdNotReported(t *testing.T) {
	var records []models.TransactionRecord
	for i := 0; i < DefaultThreshold; i++ {
		records = append(records, deposit(1))
	}

	job := NewJob(&stubLog{records: records}, nil, DefaultThreshold)
	report, err := job.Run(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
}

func TestRun_TransferCountsBothParticipants(t *testing.T) {
	// 21 transfers between the same pair put both users over the threshold.
	var records []models.TransactionRecord
	for i := 0; i < 21; i++ {
		records = append(records, transfer(1, 2))
	}

	job := NewJob(&stubLog{records: records}, nil, DefaultThreshold)
	report, err := job.Run(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)

	require.Len(t, report.Findings, 2)
	// Findings are ordered by user ID.
	assert.Equal(t, uint(1), report.Findings[0].UserID)
	assert.Equal(t, uint(2), report.Findings[1].UserID)
	assert.Equal(t, 21, report.Findings[0].Count)
	assert.Equal(t, 21, report.Findings[1].Count)
}

func TestRun_SingleFlight(t *testing.T) {
	blocker := &stubLog{entered: make(chan struct{}), block: make(chan struct{})}
	job := NewJob(blocker, nil, DefaultThreshold)

	done := make(chan error, 1)
	go func() {
		_, err := job.Run(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
		done <- err
	}()

	// Wait until the first run holds the lock inside ListWindow.
	<-blocker.entered
	_, err := job.Run(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(blocker.block)
	require.NoError(t, <-done)

	// After the first run finishes, a new run is accepted again.
	_, err = job.Run(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	assert.NoError(t, err)
}

func TestRun_ReaderError(t *testing.T) {
	job := NewJob(&stubLog{err: errors.New("log unavailable")}, nil, DefaultThreshold)
	_, err := job.Run(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	assert.Error(t, err)
}

func TestPreviousDayWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	start, end := PreviousDayWindow(now)

	assert.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), end)

	// Local-zone input yields the same UTC window.
	local := now.In(time.FixedZone("UTC+5", 5*3600))
	start2, end2 := PreviousDayWindow(local)
	assert.True(t, start.Equal(start2))
	assert.True(t, end.Equal(end2))
}

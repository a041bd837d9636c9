// Package scan implements the daily volume scan: a read-only batch pass
// over the prior day's transaction log that reports users with anomalous
// activity. It never mutates ledger or log state and its failure is
// non-fatal to the rest of the system.
package scan

import (
	"context"
	"errors"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"fluxpay/internal/models"
	"fluxpay/internal/services/alert"
)

// DefaultThreshold is the per-day record count above which a user is
// reported.
const DefaultThreshold = 20

// ErrScanInProgress is returned when a run is requested while a previous
// one is still executing. Runs are single-flight.
var ErrScanInProgress = errors.New("daily scan already running")

// Finding reports one user exceeding the daily threshold.
type Finding struct {
	UserID uint   `json:"user_id"`
	Count  int    `json:"count"`
	Reason string `json:"reason"`
}

// Report is the scan's output artifact.
type Report struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	GeneratedAt time.Time `json:"generated_at"`
	Scanned     int       `json:"scanned"`
	Findings    []Finding `json:"findings"`
}

// LogReader is the read-only slice of the transaction log the scan needs.
type LogReader interface {
	ListWindow(ctx context.Context, start, end time.Time) ([]models.TransactionRecord, error)
}

type Job struct {
	transactions LogReader
	alerts       alert.Dispatcher
	threshold    int
	mu           sync.Mutex
}

func NewJob(transactions LogReader, alerts alert.Dispatcher, threshold int) *Job {
	if transactions == nil {
		panic("transaction repository is required")
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Job{transactions: transactions, alerts: alerts, threshold: threshold}
}

// Run scans all non-deleted records in [start, end), counting each
// participant once per record, and reports users above the threshold.
func (j *Job) Run(ctx context.Context, start, end time.Time) (*Report, error) {
	if !j.mu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer j.mu.Unlock()

	records, err := j.transactions.ListWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int)
	for _, rec := range records {
		for _, userID := range rec.Participants() {
			counts[userID]++
		}
	}

	report := &Report{
		WindowStart: start,
		WindowEnd:   end,
		GeneratedAt: time.Now(),
		Scanned:     len(records),
	}
	for userID, count := range counts {
		if count > j.threshold {
			report.Findings = append(report.Findings, Finding{
				UserID: userID,
				Count:  count,
				Reason: alert.TypeExcessiveDaily,
			})
		}
	}
	sort.Slice(report.Findings, func(a, b int) bool {
		return report.Findings[a].UserID < report.Findings[b].UserID
	})

	j.dispatch(ctx, report)
	return report, nil
}

// PreviousDayWindow returns the [midnight-24h, midnight) window preceding
// now, in UTC.
func PreviousDayWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return end.Add(-24 * time.Hour), end
}

func (j *Job) dispatch(ctx context.Context, report *Report) {
	if j.alerts == nil {
		return
	}
	for _, f := range report.Findings {
		details := map[string]string{
			"count":        strconv.Itoa(f.Count),
			"window_start": report.WindowStart.Format(time.RFC3339),
			"window_end":   report.WindowEnd.Format(time.RFC3339),
		}
		if err := j.alerts.Notify(ctx, f.UserID, alert.TypeExcessiveDaily, details); err != nil {
			log.Printf("scan: alert dispatch failed for user %d: %v", f.UserID, err)
		}
	}
}

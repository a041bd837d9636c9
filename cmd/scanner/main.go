// Package main runs the daily volume scan. By default it scans the previous
// full UTC day once and prints the report; with -interval it keeps running
// on a ticker, one scan at a time.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"fluxpay/internal/config"
	"fluxpay/internal/repositories"
	"fluxpay/internal/services/alert"
	"fluxpay/internal/services/scan"
)

func main() {
	interval := flag.Duration("interval", 0, "rescan interval; 0 runs once and exits")
	flag.Parse()

	config.LoadEnv()

	db, err := repositories.Connect()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	store := repositories.NewStore(db)
	job := scan.NewJob(store.Transactions(), alert.NewLogDispatcher(),
		config.GetIntEnv("SCAN_DAILY_THRESHOLD", scan.DefaultThreshold))

	if *interval <= 0 {
		if err := runOnce(job); err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if err := runOnce(job); err != nil && !errors.Is(err, scan.ErrScanInProgress) {
			log.Printf("scan failed: %v", err)
		}
		<-ticker.C
	}
}

func runOnce(job *scan.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start, end := scan.PreviousDayWindow(time.Now())
	report, err := job.Run(ctx, start, end)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

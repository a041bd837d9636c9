package processor

import (
	"context"
	"time"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)          {}
func (n *NoopMetricsCollector) RecordFlagged(string)                          {}
func (n *NoopMetricsCollector) RecordError(string, string)                    {}

type noopCache struct{}

func (noopCache) InvalidateWallet(context.Context, uint) error { return nil }

// Package metrics exposes prometheus collectors for the transaction
// processor and serves them on a side port.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the processor's MetricsCollector interface on top of
// a dedicated prometheus registry.
type Collector struct {
	registry          *prometheus.Registry
	operationDuration *prometheus.HistogramVec
	operationResults  *prometheus.CounterVec
	flaggedTotal      *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		operationDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transaction_operation_duration_seconds",
			Help:    "Time taken to process one ledger operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		operationResults: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_operations_total",
			Help: "Processed ledger operations by result",
		}, []string{"operation", "result"}),
		flaggedTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "transactions_flagged_total",
			Help: "Operations flagged by the fraud rules, by reason",
		}, []string{"reason"}),
		errorsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_errors_total",
			Help: "Operation errors by type",
		}, []string{"operation", "type"}),
	}
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.operationResults.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordFlagged(reason string) {
	c.flaggedTotal.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordError(operation, errType string) {
	c.errorsTotal.WithLabelValues(operation, errType).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on its own listener so scrapes never compete
// with API traffic.
func (c *Collector) StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("metrics server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server failed: %v", err)
		}
	}()
	return server
}

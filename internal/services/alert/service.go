// Package alert delivers advisory notifications about flagged operations.
// Dispatch is fire-and-forget: a delivery failure never affects the
// committed outcome of the operation that raised it.
package alert

import (
	"context"
	"log"
)

// Alert types
const (
	TypeFraudFlag      = "fraud_flag"
	TypeExcessiveDaily = "excessive_daily_transactions"
)

// Dispatcher is the outbound alerting collaborator. Delivery transports
// (email, paging) live outside this service.
type Dispatcher interface {
	Notify(ctx context.Context, userID uint, alertType string, details map[string]string) error
}

// LogDispatcher writes alerts to the application log. It stands in wherever
// no external transport is configured.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher { return &LogDispatcher{} }

func (d *LogDispatcher) Notify(ctx context.Context, userID uint, alertType string, details map[string]string) error {
	log.Printf("alert: user=%d type=%s details=%v", userID, alertType, details)
	return nil
}

package event

import (
	"context"

	"github.com/stocker/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LoggingHandler writes every domain event it receives to the audit log.
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a wildcard handler that logs at info level.
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger.Named("domain_events")}
}

// Handle logs the event envelope
func (h *LoggingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_type", ev.AggregateType()),
		zap.String("aggregate_id", ev.AggregateID().String()),
		zap.String("tenant_id", ev.TenantID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
	)
	return nil
}

// EventTypes is empty so the handler receives all events.
func (h *LoggingHandler) EventTypes() []string { return nil }

var _ shared.EventHandler = (*LoggingHandler)(nil)

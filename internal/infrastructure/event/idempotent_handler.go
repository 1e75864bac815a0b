package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/stocker/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultHandledTTL is how long a handled event ID is remembered.
const DefaultHandledTTL = 24 * time.Hour

// IdempotencyStats counts outcomes of an IdempotentHandler.
type IdempotencyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler wraps a handler so an event ID is handled at most once
// per TTL. A failed delivery releases the claim so a redelivery can retry.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// NewIdempotentHandler wraps handler. A zero ttl means DefaultHandledTTL.
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) *IdempotentHandler {
	if ttl <= 0 {
		ttl = DefaultHandledTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotentHandler{handler: handler, store: store, ttl: ttl, logger: logger}
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle claims the event ID and runs the wrapped handler.
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	key := "event:" + ev.EventID().String()

	fresh, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		// a store outage must not drop events
		h.logger.Warn("idempotency check failed, handling anyway",
			zap.String("event_id", ev.EventID().String()),
			zap.Error(err),
		)
	case !fresh:
		h.duplicate.Add(1)
		return nil
	}

	if err := h.handler.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		if relErr := h.store.Release(context.WithoutCancel(ctx), key); relErr != nil {
			h.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns a snapshot of the counters.
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

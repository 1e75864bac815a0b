// Package event delivers domain events raised by aggregates to in-process
// subscribers once the command that raised them has committed.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/stocker/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus dispatches events synchronously to registered handlers.
// A failing or panicking handler is logged and does not stop delivery to
// the others.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
}

// Publish delivers events in order. It only returns an error when ctx is
// already done.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, h := range b.registry.GetHandlers(ev.EventType()) {
			if err := b.dispatch(ctx, h, ev); err != nil {
				b.logger.Error("event handler failed",
					zap.String("event_type", ev.EventType()),
					zap.String("event_id", ev.EventID().String()),
					zap.String("tenant_id", ev.TenantID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for the handler's own
// EventTypes when none are given.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start marks the bus as running.
func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Count()))
	return nil
}

// Stop marks the bus as stopped. Delivery is synchronous so nothing is in flight.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

// IsRunning reports whether Start has been called without a later Stop.
func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

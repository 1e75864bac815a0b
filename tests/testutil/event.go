package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps what it receives.
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewEventRecorder subscribes to eventTypes, or to everything when none are
// given.
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

func (r *EventRecorder) EventTypes() []string { return r.eventTypes }

func (r *EventRecorder) Handle(_ context.Context, ev shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, ev)
	return r.err
}

// Handled returns a copy of the received events in arrival order.
func (r *EventRecorder) Handled() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.DomainEvent(nil), r.handled...)
}

// Types lists the received event types in arrival order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.handled))
	for i, ev := range r.handled {
		types[i] = ev.EventType()
	}
	return types
}

func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

// FailWith makes subsequent Handle calls return err.
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// WaitFor reports whether at least n events arrived before timeout.
func (r *EventRecorder) WaitFor(n int, timeout time.Duration) bool {
	return WaitForCondition(func() bool { return r.Count() >= n }, timeout, 10*time.Millisecond)
}

// TestEvent is a bare domain event for exercising buses and handlers.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func NewTestEvent(eventType string, tenantID uuid.UUID) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), tenantID),
		Data:            "test-data",
	}
}

// Package mediator dispatches commands and queries to exactly one handler
// per request type, through a chain of pipeline behaviors.
package mediator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrHandlerAlreadyRegistered = errors.New("mediator: handler already registered for request type")
	ErrHandlerNotFound          = errors.New("mediator: no handler registered for request type")
	ErrUnexpectedResponse       = errors.New("mediator: handler returned an unexpected response type")
)

// RequestHandler handles one request type.
type RequestHandler[Req any, Res any] interface {
	Handle(ctx context.Context, req Req) (Res, error)
}

// HandlerFunc adapts a function to RequestHandler.
type HandlerFunc[Req any, Res any] func(ctx context.Context, req Req) (Res, error)

func (f HandlerFunc[Req, Res]) Handle(ctx context.Context, req Req) (Res, error) {
	return f(ctx, req)
}

// Next continues the pipeline.
type Next func(ctx context.Context) (any, error)

// Behavior wraps every dispatch. It must call next exactly once to reach
// the handler, or return without calling it to short-circuit.
type Behavior interface {
	Handle(ctx context.Context, req any, next Next) (any, error)
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(ctx context.Context, req any, next Next) (any, error)

func (f BehaviorFunc) Handle(ctx context.Context, req any, next Next) (any, error) {
	return f(ctx, req, next)
}

type erasedHandler func(ctx context.Context, req any) (any, error)

// Mediator routes requests to handlers.
type Mediator struct {
	mu        sync.RWMutex
	handlers  map[reflect.Type]erasedHandler
	behaviors []Behavior
}

// New creates a mediator. Behaviors run in the given order, the first one
// outermost.
func New(behaviors ...Behavior) *Mediator {
	return &Mediator{
		handlers:  make(map[reflect.Type]erasedHandler),
		behaviors: behaviors,
	}
}

// Register binds Req to handler.
func Register[Req any, Res any](m *Mediator, handler RequestHandler[Req, Res]) error {
	t := reflect.TypeFor[Req]()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.handlers[t]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerAlreadyRegistered, t)
	}
	m.handlers[t] = func(ctx context.Context, req any) (any, error) {
		return handler.Handle(ctx, req.(Req))
	}
	return nil
}

// MustRegister is Register for wiring code, panicking on a duplicate.
func MustRegister[Req any, Res any](m *Mediator, handler RequestHandler[Req, Res]) {
	if err := Register(m, handler); err != nil {
		panic(err)
	}
}

// Send dispatches req through the behaviors to its handler.
func Send[Req any, Res any](ctx context.Context, m *Mediator, req Req) (Res, error) {
	var zero Res
	t := reflect.TypeFor[Req]()

	m.mu.RLock()
	h, ok := m.handlers[t]
	behaviors := m.behaviors
	m.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrHandlerNotFound, t)
	}

	next := Next(func(ctx context.Context) (any, error) { return h(ctx, req) })
	for i := len(behaviors) - 1; i >= 0; i-- {
		b, inner := behaviors[i], next
		next = func(ctx context.Context) (any, error) { return b.Handle(ctx, req, inner) }
	}

	out, err := next(ctx)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	res, ok := out.(Res)
	if !ok {
		return zero, fmt.Errorf("%w: want %s, got %T", ErrUnexpectedResponse, reflect.TypeFor[Res](), out)
	}
	return res, nil
}

// RequestName is the package-qualified type name of req, used in logs,
// span names and metric attributes.
func RequestName(req any) string {
	t := reflect.TypeOf(req)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

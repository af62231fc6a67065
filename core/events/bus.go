// Package events provides the in-process bus that carries invocation
// lifecycle events from the dispatcher to the audit log and metrics.
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Invocation lifecycle event names.
const (
	InvocationReceived  = "invocation.received"
	InvocationCompleted = "invocation.completed"
	InvocationFailed    = "invocation.failed"
)

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "invocation.completed").
	Name string

	// AppID is the calling app, if any.
	AppID string

	// Module and Method identify the addressed operation.
	Module string
	Method string

	// Payload is event specific. Invocation events carry an invocation.Record.
	Payload any
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "invocation.failed" - exact match
//   - "invocation.*" - all invocation events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order, exact matches
// first. A handler error is logged and does not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("app_id", event.AppID).
		Str("module", event.Module).
		Str("method", event.Method).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// PublishAsync emits an event asynchronously.
// The function returns immediately; handlers run in a goroutine.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	go b.Publish(context.WithoutCancel(ctx), event)
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.match(event)) > 0
}

// match collects handlers under the read lock so handlers may subscribe.
func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)

	if prefix, _, ok := strings.Cut(name, "."); ok && prefix != "" {
		matched = append(matched, b.handlers[prefix+".*"]...)
	}

	matched = append(matched, b.handlers["*"]...)
	return matched
}

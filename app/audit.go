package app

import (
	"context"
	"fmt"

	"github.com/artpar/apphost/core/events"
	"github.com/artpar/apphost/domain/invocation"
	"github.com/artpar/apphost/ports"
)

// AuditRecorder writes finished invocations to the invocation log.
type AuditRecorder struct {
	log ports.InvocationLog
}

// NewAuditRecorder creates a recorder.
func NewAuditRecorder(log ports.InvocationLog) *AuditRecorder {
	return &AuditRecorder{log: log}
}

// Subscribe attaches the recorder to the bus.
func (a *AuditRecorder) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.InvocationCompleted, a.handle)
	bus.Subscribe(events.InvocationFailed, a.handle)
}

func (a *AuditRecorder) handle(ctx context.Context, e events.Event) error {
	rec, ok := e.Payload.(invocation.Record)
	if !ok {
		return fmt.Errorf("audit: unexpected payload %T for %s", e.Payload, e.Name)
	}
	// The invocation's own context may be cancelled by now.
	return a.log.Append(context.WithoutCancel(ctx), rec)
}

// Query returns matching records, newest first.
func (a *AuditRecorder) Query(ctx context.Context, f invocation.Filter) ([]invocation.Record, error) {
	return a.log.List(ctx, f)
}

// Summary aggregates the records matching f.
func (a *AuditRecorder) Summary(ctx context.Context, f invocation.Filter) (invocation.Summary, error) {
	records, err := a.log.List(ctx, f)
	if err != nil {
		return invocation.Summary{}, err
	}
	return invocation.Summarize(records), nil
}

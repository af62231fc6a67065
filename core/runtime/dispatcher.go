// Package runtime provides the module dispatcher: the single entry point
// through which platform apps invoke host operations.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/core/events"
	"github.com/artpar/apphost/core/registry"
	"github.com/artpar/apphost/domain/invocation"
	"github.com/artpar/apphost/pkg/apierror"
)

const tracerName = "github.com/artpar/apphost/core/runtime"

// Invocation is an inbound call from a platform app.
type Invocation struct {
	AppID  string `json:"appId"`
	Module string `json:"module"`
	Method string `json:"method"`
	Args   any    `json:"args"`
}

// Config configures the dispatcher.
type Config struct {
	// ConcealUnauthorized makes method lookups on a module the app may not
	// use report permission_denied instead of method_not_found.
	ConcealUnauthorized bool

	// Events receives invocation lifecycle events (optional).
	Events *events.Bus

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer

	// Logger for invocation outcomes.
	Logger zerolog.Logger

	// NewID mints correlation ids. Now is the clock. Both optional.
	NewID func() string
	Now   func() time.Time
}

// Dispatcher sequences permission check, validation, translation and
// delegation for each invocation. It is safe for concurrent use and holds
// no lock across stages.
type Dispatcher struct {
	registry *registry.Registry
	resolver *capability.Resolver
	events   *events.Bus
	tracer   trace.Tracer
	logger   zerolog.Logger
	newID    func() string
	now      func() time.Time

	conceal atomic.Bool
}

// New creates a dispatcher over a registry. The registry should be frozen
// before the first Invoke.
func New(reg *registry.Registry, resolver *capability.Resolver, cfg Config) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		resolver: resolver,
		events:   cfg.Events,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger,
		newID:    cfg.NewID,
		now:      cfg.Now,
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	if d.newID == nil {
		d.newID = func() string { return "" }
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.conceal.Store(cfg.ConcealUnauthorized)
	return d
}

// SetConcealUnauthorized changes the concealment policy at runtime
// (config reload).
func (d *Dispatcher) SetConcealUnauthorized(on bool) {
	d.conceal.Store(on)
}

// Registry returns the module registry.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Invoke runs one invocation through the pipeline. Every failure is
// returned as an *apierror.Error; nothing here is fatal to the host.
func (d *Dispatcher) Invoke(ctx context.Context, inv Invocation) (any, error) {
	start := d.now()
	id := d.newID()
	ctx = capability.WithCorrelationID(ctx, id)

	ctx, span := d.tracer.Start(ctx, "apphost.invoke",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("apphost.app_id", inv.AppID),
			attribute.String("apphost.module", inv.Module),
			attribute.String("apphost.method", inv.Method),
			attribute.String("apphost.correlation_id", id),
		))
	defer span.End()

	rec := invocation.Record{
		ID:        id,
		AppID:     inv.AppID,
		Module:    inv.Module,
		Method:    inv.Method,
		StartedAt: start,
	}
	d.publish(ctx, events.InvocationReceived, rec)

	result, stage, err := d.run(ctx, span, inv)

	rec.Stage = stage.String()
	rec.Duration = d.now().Sub(start)

	if err != nil {
		apiErr := normalize(err)
		rec.Outcome = invocation.OutcomeFailed
		rec.ErrorKind = string(apiErr.Kind)
		rec.Message = apiErr.Message

		span.AddEvent(StageFailed.String())
		span.SetAttributes(attribute.String("apphost.error_kind", rec.ErrorKind))
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Message)

		d.logger.Warn().
			Str("app_id", inv.AppID).
			Str("module", inv.Module).
			Str("method", inv.Method).
			Str("correlation_id", id).
			Str("stage", rec.Stage).
			Str("error_kind", rec.ErrorKind).
			Dur("duration", rec.Duration).
			Msg(apiErr.Message)

		d.publish(ctx, events.InvocationFailed, rec)
		return nil, apiErr
	}

	rec.Outcome = invocation.OutcomeCompleted
	span.AddEvent(StageCompleted.String())
	span.SetStatus(codes.Ok, "")

	d.logger.Debug().
		Str("app_id", inv.AppID).
		Str("module", inv.Module).
		Str("method", inv.Method).
		Str("correlation_id", id).
		Dur("duration", rec.Duration).
		Msg("invocation completed")

	d.publish(ctx, events.InvocationCompleted, rec)
	return result, nil
}

// run executes the pipeline. stage is the last stage reached.
func (d *Dispatcher) run(ctx context.Context, span trace.Span, inv Invocation) (result any, stage Stage, err error) {
	stage = StageReceived

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = apierror.Internal(
				fmt.Sprintf("%s.%s failed unexpectedly", inv.Module, inv.Method),
				fmt.Errorf("panic: %v", p))
		}
	}()

	mod, ok := d.registry.Lookup(inv.Module)
	if !ok {
		return nil, stage, apierror.ModuleNotFound(inv.Module)
	}

	meth, ok := mod.Method(inv.Method)
	if !ok {
		if d.conceal.Load() {
			if err := d.concealed(ctx, inv.AppID, mod); err != nil {
				return nil, stage, err
			}
		}
		return nil, stage, apierror.MethodNotFound(inv.Module, inv.Method)
	}

	cc, err := d.resolver.Resolve(ctx, inv.AppID, mod.Name, meth.Name, mod.Permissions)
	if err != nil {
		return nil, stage, err
	}
	stage = advance(span, StagePermissionChecked)

	input, err := meth.Parse(inv.Args)
	if err != nil {
		if _, ok := apierror.As(err); !ok {
			err = apierror.New(apierror.KindValidation, err.Error()).Cause(err).Build()
		}
		return nil, stage, err
	}
	stage = advance(span, StageValidated)

	if meth.Translate != nil {
		if input, err = meth.Translate(ctx, cc, input); err != nil {
			if _, ok := apierror.As(err); !ok {
				err = apierror.Internal("translate arguments", err)
			}
			return nil, stage, err
		}
	}
	stage = advance(span, StageTranslated)

	if err := ctx.Err(); err != nil {
		return nil, stage, apierror.Internal("invocation cancelled before delegation", err)
	}
	stage = advance(span, StageDelegated)

	out, err := meth.Handle(ctx, cc, input)
	if err != nil {
		if _, ok := apierror.As(err); !ok {
			err = apierror.Engine(err)
		}
		return nil, stage, err
	}
	return out, StageCompleted, nil
}

// concealed returns permission_denied when the app lacks the module's
// permissions, so method names of unusable modules are not confirmed.
func (d *Dispatcher) concealed(ctx context.Context, appID string, mod registry.Module) error {
	granted, err := d.resolver.Granted(ctx, appID)
	if err != nil {
		return err
	}
	if p, missing := capability.Missing(mod.Permissions, granted); missing {
		return apierror.PermissionDenied(mod.Name, p.String())
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, name string, rec invocation.Record) {
	if d.events == nil {
		return
	}
	d.events.Publish(ctx, events.Event{
		Name:    name,
		AppID:   rec.AppID,
		Module:  rec.Module,
		Method:  rec.Method,
		Payload: rec,
	})
}

func advance(span trace.Span, s Stage) Stage {
	span.AddEvent(s.String())
	return s
}

// normalize guarantees the caller sees a taxonomy error.
func normalize(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.Internal("invocation failed", err)
}

// Package metrics provides Prometheus metrics collection for apphost.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artpar/apphost/core/events"
	"github.com/artpar/apphost/domain/invocation"
)

const namespace = "apphost"

// Collector holds all Prometheus metrics for apphost.
type Collector struct {
	// Invocation metrics
	InvocationsTotal    *prometheus.CounterVec
	InvocationDuration  *prometheus.HistogramVec
	InvocationsInFlight prometheus.Gauge

	// Permission metrics
	PermissionDenials *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer), prometheus.DefaultGatherer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	return newCollector(promauto.With(reg), reg)
}

func newCollector(factory promauto.Factory, gatherer prometheus.Gatherer) *Collector {
	return &Collector{
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of finished module invocations",
			},
			[]string{"module", "method", "outcome", "error_kind"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Invocation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"module", "method", "outcome"},
		),
		InvocationsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "invocations_in_flight",
				Help:      "Number of invocations currently being dispatched",
			},
		),

		PermissionDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "permission_denials_total",
				Help:      "Total number of invocations rejected for missing permissions",
			},
			[]string{"module"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),

		gatherer: gatherer,
	}
}

// Subscribe feeds the collector from invocation lifecycle events.
func (c *Collector) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.InvocationReceived, c.onReceived)
	bus.Subscribe(events.InvocationCompleted, c.onFinished)
	bus.Subscribe(events.InvocationFailed, c.onFinished)
}

func (c *Collector) onReceived(context.Context, events.Event) error {
	c.InvocationsInFlight.Inc()
	return nil
}

func (c *Collector) onFinished(_ context.Context, e events.Event) error {
	c.InvocationsInFlight.Dec()

	rec, ok := e.Payload.(invocation.Record)
	if !ok {
		return nil
	}
	c.ObserveInvocation(rec)
	return nil
}

// ObserveInvocation records one finished invocation.
func (c *Collector) ObserveInvocation(rec invocation.Record) {
	module := LabelValue(rec.Module)
	method := LabelValue(rec.Method)
	outcome := string(rec.Outcome)

	c.InvocationsTotal.WithLabelValues(module, method, outcome, rec.ErrorKind).Inc()
	c.InvocationDuration.WithLabelValues(module, method, outcome).Observe(rec.Duration.Seconds())

	if rec.ErrorKind == "permission_denied" {
		c.PermissionDenials.WithLabelValues(module).Inc()
	}
}

// RecordReload records the result of a config reload.
func (c *Collector) RecordReload(err error, at time.Time) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// LabelValue bounds label cardinality. Module and method names come from
// apps and may be arbitrary for unknown modules.
func LabelValue(s string) string {
	if s == "" {
		return "none"
	}
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}

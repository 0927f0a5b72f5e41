package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns the mediascribe meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the instruments recorded by the pipeline.
type Metrics struct {
	jobTotal          metric.Int64Counter
	jobDuration       metric.Float64Histogram
	jobActive         metric.Int64UpDownCounter
	attemptTotal      metric.Int64Counter
	modelLoadDuration metric.Float64Histogram
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.jobTotal, "job.total", "Jobs finished, by final state and error kind"},
		{&m.attemptTotal, "acquire.attempt.total", "Acquisition attempts, by adapter and outcome"},
		{&m.operationTotal, "operation.total", "Provider executions"},
		{&m.errorTotal, "error.total", "Errors by type and component"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.jobDuration, "job.duration", "Job wall time"},
		{&m.modelLoadDuration, "model.load.duration", "Model load time"},
		{&m.operationDuration, "operation.duration", "Provider execution time"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s")); err != nil {
			return nil, fmt.Errorf("creating %s histogram: %w", h.name, err)
		}
	}

	if m.jobActive, err = meter.Int64UpDownCounter("job.active", metric.WithDescription("Jobs in flight")); err != nil {
		return nil, fmt.Errorf("creating job.active gauge: %w", err)
	}
	return &m, nil
}

// NewDefaultMetrics creates instruments on the global meter.
// The noop meter never fails, so errors are only possible with a real SDK.
func NewDefaultMetrics() *Metrics {
	m, err := NewMetrics(Meter())
	if err != nil {
		return nil
	}
	return m
}

// JobStarted increments the in-flight job gauge.
func (m *Metrics) JobStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.jobActive.Add(ctx, 1)
}

// JobFinished records a finished job.
func (m *Metrics) JobFinished(ctx context.Context, state, errorKind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobActive.Add(ctx, -1)
	m.jobTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", state),
		attribute.String("error_kind", errorKind),
	))
	m.jobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("state", state)))
}

// RecordAttempt records one acquisition attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, adapter, outcome string) {
	if m == nil {
		return
	}
	m.attemptTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("adapter", adapter),
		attribute.String("outcome", outcome),
	))
}

// RecordModelLoad records a model load.
func (m *Metrics) RecordModelLoad(ctx context.Context, selector string, duration time.Duration) {
	if m == nil {
		return
	}
	m.modelLoadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("selector", selector)))
}

// RecordOperation records a provider execution.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}

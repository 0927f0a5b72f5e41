package provider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/observability"
)

// around keeps inner's name and availability and replaces Execute.
func around[I, O any](inner RequestResponse[I, O], exec func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &aroundRR[I, O]{RequestResponse: inner, exec: exec}
}

type aroundRR[I, O any] struct {
	RequestResponse[I, O]
	exec func(ctx context.Context, input I) (O, error)
}

func (a *aroundRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return a.exec(ctx, input)
}

// WithTracing opens a client span "{service}.{provider}" per Execute. A
// failed call records its error kind on the span.
func WithTracing[I, O any](service string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		name := inner.Name()
		return around(inner, func(ctx context.Context, input I) (O, error) {
			ctx, span := observability.StartSpan(ctx, service+"."+name, trace.WithSpanKind(trace.SpanKindClient))
			defer span.End()
			observability.SetSpanAttribute(ctx, observability.AttrServiceName, service)
			observability.SetSpanAttribute(ctx, observability.AttrOperationName, name)

			out, err := inner.Execute(ctx, input)
			if err != nil {
				observability.SetSpanAttribute(ctx, observability.AttrErrorKind, string(errors.KindOf(err)))
				observability.SetSpanError(ctx, err)
			}
			return out, err
		})
	}
}

// WithMetrics counts each Execute and its duration under service, and
// counts failures by error kind.
func WithMetrics[I, O any](service string, metrics *observability.Metrics) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		name := inner.Name()
		return around(inner, func(ctx context.Context, input I) (O, error) {
			start := time.Now()
			out, err := inner.Execute(ctx, input)
			status := "ok"
			if err != nil {
				status = "error"
				metrics.RecordError(ctx, string(errors.KindOf(err)), name)
			}
			metrics.RecordOperation(ctx, service, name, status, time.Since(start))
			return out, err
		})
	}
}

// WithLogging logs each Execute with its duration. Failures go out at warn:
// the acquisition chain expects some adapters to fail.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		name := inner.Name()
		return around(inner, func(ctx context.Context, input I) (O, error) {
			start := time.Now()
			out, err := inner.Execute(ctx, input)

			fields := logger.Fields("provider", name, logger.FieldDuration, time.Since(start).Milliseconds())
			l := log.WithContext(ctx)
			if err != nil {
				fields["kind"] = string(errors.KindOf(err))
				l.Warn("provider execute failed", logger.MergeWithError(fields, err))
				return out, err
			}
			l.Debug("provider execute ok", fields)
			return out, err
		})
	}
}

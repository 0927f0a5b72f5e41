package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.MetricInterval != 15*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.SampleRate = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample rate out of range to fail")
	}
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, "mediascribe", "dev", "development")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestInitEnabledInstallsProviders(t *testing.T) {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	}()

	cfg := Config{Enabled: true, Endpoint: strings.TrimPrefix(collector.URL, "http://"), Insecure: true}
	cfg.ApplyDefaults()
	shutdown, err := Init(context.Background(), cfg, "mediascribe", "dev", "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("tracer provider = %T, want sdk provider", otel.GetTracerProvider())
	}
	if _, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider); !ok {
		t.Errorf("meter provider = %T, want sdk provider", otel.GetMeterProvider())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), SpanJob)
	SetSpanAttribute(ctx, AttrJobID, "job-1")
	SetSpanAttribute(ctx, "attempts", 2)
	SetSpanError(ctx, errors.New("acquisition failed"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != SpanJob {
		t.Errorf("span name = %q", got.Name())
	}
	if got.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", got.Status())
	}
	found := false
	for _, attr := range got.Attributes() {
		if string(attr.Key) == AttrJobID && attr.Value.AsString() == "job-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected job id attribute, got %v", got.Attributes())
	}
}

func TestMetricsWithNoopMeter(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.JobStarted(ctx)
	m.JobFinished(ctx, "completed", "", time.Second)
	m.RecordAttempt(ctx, "ytdlp", "ok")
	m.RecordModelLoad(ctx, "base", time.Second)
	m.RecordOperation(ctx, "acquire", "youtube", "ok", time.Millisecond)
	m.RecordError(ctx, "TRANSIENT", "youtube")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.JobStarted(context.Background())
	m.JobFinished(context.Background(), "failed", "NOT_FOUND", time.Second)
	m.RecordAttempt(context.Background(), "x", "y")
}

func TestJobFinishedRecordsCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.JobStarted(ctx)
	m.JobFinished(ctx, "failed", "ACQUISITION_FAILED", time.Second)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "job.total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
				t.Fatalf("unexpected job.total data %+v", metric.Data)
			}
			return
		}
	}
	t.Fatal("job.total not collected")
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/resilience"
)

type fakeAdapter struct {
	name      string
	available bool
	calls     int
	results   []error
}

func (f *fakeAdapter) Name() string                       { return f.name }
func (f *fakeAdapter) IsAvailable(_ context.Context) bool { return f.available }
func (f *fakeAdapter) Execute(_ context.Context, in string) (string, error) {
	f.calls++
	if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return "", err
		}
	}
	return f.name + ":" + in, nil
}

func TestRegistry_RegisterResolve(t *testing.T) {
	reg := NewRegistry[RequestResponse[string, string]]()
	for _, name := range []string{"ytdlp", "youtube", "direct"} {
		if err := reg.Register(&fakeAdapter{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := reg.Register(&fakeAdapter{name: "ytdlp"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}

	got, err := reg.Resolve("youtube", "ytdlp")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got[0].Name() != "youtube" || got[1].Name() != "ytdlp" {
		t.Errorf("resolve must keep requested order, got %s, %s", got[0].Name(), got[1].Name())
	}
	if _, err := reg.Resolve("vimeo"); err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
	if names := reg.Names(); strings.Join(names, ",") != "direct,youtube,ytdlp" {
		t.Errorf("Names() = %v", names)
	}

	replacement := &fakeAdapter{name: "direct", available: true}
	reg.Replace(replacement)
	if p, _ := reg.Get("direct"); p != RequestResponse[string, string](replacement) {
		t.Error("Replace should overwrite the entry")
	}
}

func TestFunc(t *testing.T) {
	p := Func("upper", func(_ context.Context, in string) (string, error) { return strings.ToUpper(in), nil })
	out, err := p.Execute(context.Background(), "abc")
	if err != nil || out != "ABC" || p.Name() != "upper" || !p.IsAvailable(context.Background()) {
		t.Fatalf("unexpected Func behavior: %q, %v", out, err)
	}
}

type sidecarRequest struct{ Path string }
type sidecarResponse struct{ Text string }

func TestAdapt_MapsTypes(t *testing.T) {
	backend := Func("whisper", func(_ context.Context, in sidecarRequest) (sidecarResponse, error) {
		return sidecarResponse{Text: "heard " + in.Path}, nil
	})
	adapted := Adapt[string, string, sidecarRequest, sidecarResponse](
		backend, "engine",
		func(_ context.Context, path string) (sidecarRequest, error) { return sidecarRequest{Path: path}, nil },
		func(out sidecarResponse) (string, error) { return out.Text, nil },
	)
	got, err := adapted.Execute(context.Background(), "a.wav")
	if err != nil || got != "heard a.wav" || adapted.Name() != "engine" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestAdapt_MapInErrorSkipsBackend(t *testing.T) {
	backend := &fakeAdapter{name: "b"}
	adapted := Adapt[int, string, string, string](
		backend, "x",
		func(_ context.Context, _ int) (string, error) { return "", stderrors.New("bad input") },
		func(out string) (string, error) { return out, nil },
	)
	if _, err := adapted.Execute(context.Background(), 1); err == nil {
		t.Fatal("expected mapIn error")
	}
	if backend.calls != 0 {
		t.Error("backend must not run when mapIn fails")
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware[string, string] {
		return func(inner RequestResponse[string, string]) RequestResponse[string, string] {
			return Func(inner.Name(), func(ctx context.Context, in string) (string, error) {
				order = append(order, name)
				return inner.Execute(ctx, in)
			})
		}
	}
	wrapped := Chain(tag("A"), nil, tag("B"))(&fakeAdapter{name: "p"})
	out, err := wrapped.Execute(context.Background(), "x")
	if err != nil || out != "p:x" {
		t.Fatalf("got %q, %v", out, err)
	}
	if strings.Join(order, "") != "AB" {
		t.Errorf("first middleware must be outermost, got %v", order)
	}
}

func TestObservabilityMiddlewares_PassThrough(t *testing.T) {
	inner := &fakeAdapter{name: "youtube", available: true, results: []error{errors.NotFound("video", "x")}}
	wrapped := Chain(
		WithTracing[string, string]("acquire"),
		WithLogging[string, string](logger.Nop()),
		WithMetrics[string, string]("acquire", observability.NewDefaultMetrics()),
	)(inner)

	if wrapped.Name() != "youtube" || !wrapped.IsAvailable(context.Background()) {
		t.Fatal("middlewares must delegate Name and IsAvailable")
	}
	_, err := wrapped.Execute(context.Background(), "id")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("error taxonomy must survive middleware, got %v", err)
	}
	out, err := wrapped.Execute(context.Background(), "id")
	if err != nil || out != "youtube:id" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestWithLogging_FailureCarriesKind(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "mediascribe", &buf)
	inner := &fakeAdapter{name: "ytdlp", results: []error{errors.Unsupported("live stream")}}
	wrapped := WithLogging[string, string](log)(inner)

	_, _ = wrapped.Execute(context.Background(), "id")
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" || line["provider"] != "ytdlp" || line["kind"] != "UNSUPPORTED_CONTENT" {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestWithResilience_EmptyConfigIsPassthrough(t *testing.T) {
	p := &fakeAdapter{name: "p"}
	if WithResilience[string, string](p, ResilienceConfig{}) != RequestResponse[string, string](p) {
		t.Error("empty config should return the provider unchanged")
	}
}

func TestWithResilience_RetriesTransientOnly(t *testing.T) {
	retry := &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	flaky := &fakeAdapter{name: "flaky", results: []error{errors.Transient("get", "reset"), nil}}
	out, err := WithResilience[string, string](flaky, ResilienceConfig{Retry: retry}).Execute(context.Background(), "a")
	if err != nil || out != "flaky:a" || flaky.calls != 2 {
		t.Fatalf("expected recovery on second call, got %q, %v, calls=%d", out, err, flaky.calls)
	}

	gone := &fakeAdapter{name: "gone", results: []error{errors.NotFound("video", ""), nil}}
	_, err = WithResilience[string, string](gone, ResilienceConfig{Retry: retry}).Execute(context.Background(), "a")
	if !errors.Is(err, errors.ErrCodeNotFound) || gone.calls != 1 {
		t.Fatalf("NOT_FOUND must not be retried, got %v after %d calls", err, gone.calls)
	}
}

func TestWithResilience_OpenCircuit(t *testing.T) {
	p := &fakeAdapter{name: "p", available: true, results: []error{errors.Transient("x", "y")}}
	wrapped := WithResilience[string, string](p, ResilienceConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute},
	})
	_, _ = wrapped.Execute(context.Background(), "a")

	if wrapped.IsAvailable(context.Background()) {
		t.Error("open circuit should report unavailable")
	}
	_, err := wrapped.Execute(context.Background(), "a")
	if !errors.Is(err, errors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if appErr, _ := errors.AsAppError(err); appErr.Details["retry_after"] != "1m0s" {
		t.Errorf("expected retry_after detail, got %v", appErr.Details)
	}
	if p.calls != 1 {
		t.Errorf("open circuit must not call the provider, calls=%d", p.calls)
	}
}

func TestWithResilience_BulkheadFull(t *testing.T) {
	state := BuildResilience(ResilienceConfig{Bulkhead: &resilience.BulkheadConfig{MaxConcurrent: 1}})
	release := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_, _ = ExecuteWithResilience(context.Background(), state, func() (int, error) {
			close(entered)
			<-release
			return 0, nil
		})
	}()
	<-entered
	defer close(release)

	_, err := ExecuteWithResilience(context.Background(), state, func() (int, error) { return 1, nil })
	if !errors.Is(err, errors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE from full bulkhead, got %v", err)
	}
}

func TestWrapResilienceError(t *testing.T) {
	if got := wrapResilienceError(context.Canceled); !errors.Is(got, errors.ErrCodeCanceled) {
		t.Errorf("canceled should map to CANCELED, got %v", got)
	}
	if got := wrapResilienceError(resilience.ErrRateLimited); !errors.Is(got, errors.ErrCodeRateLimited) {
		t.Errorf("rate limited should map to RATE_LIMITED, got %v", got)
	}
	plain := stderrors.New("x")
	if wrapResilienceError(plain) != plain {
		t.Error("unknown errors pass through")
	}
}

type closer struct{ closed bool }

func (c *closer) Close(context.Context) error { c.closed = true; return nil }

func TestCloseIfCloseable(t *testing.T) {
	c := &closer{}
	if err := CloseIfCloseable(context.Background(), c); err != nil || !c.closed {
		t.Fatal("expected Close to be called")
	}
	if err := CloseIfCloseable(context.Background(), "not closeable"); err != nil {
		t.Fatal("non-closeable values are ignored")
	}
}

type closingRR struct {
	fakeAdapter
	closer
}

func TestAdapt_ForwardsClose(t *testing.T) {
	inner := &closingRR{fakeAdapter: fakeAdapter{name: "sidecar", available: true}}
	rr := Adapt(RequestResponse[string, string](inner), "engine",
		func(_ context.Context, n int) (string, error) { return strings.Repeat("a", n), nil },
		func(s string) (int, error) { return len(s), nil })

	if err := CloseIfCloseable(context.Background(), rr); err != nil || !inner.closed {
		t.Errorf("close not forwarded: err=%v closed=%v", err, inner.closed)
	}
	if err := CloseIfCloseable(context.Background(), Adapt(RequestResponse[string, string](&fakeAdapter{}), "x",
		func(_ context.Context, s string) (string, error) { return s, nil },
		func(s string) (string, error) { return s, nil })); err != nil {
		t.Errorf("inner without Close: %v", err)
	}
}

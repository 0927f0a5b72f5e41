package acquire

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/workspace"
)

type recordingSink struct {
	mu     sync.Mutex
	values []float64
	stages []string
}

func (s *recordingSink) Report(f float64, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, f)
	s.stages = append(s.stages, stage)
}

// fakeAdapter writes a partial file, reports progress, then returns err or
// writes the final artifact.
type fakeAdapter struct {
	name      string
	err       error
	artifact  string
	block     bool
	available bool
	calls     int
}

func (f *fakeAdapter) Name() string                     { return f.name }
func (f *fakeAdapter) IsAvailable(context.Context) bool { return f.available }

func (f *fakeAdapter) Execute(ctx context.Context, req Request) (*Artifact, error) {
	f.calls++
	partial := req.Workspace.Path(f.name + ".part")
	_ = os.WriteFile(partial, []byte("partial"), 0o644)
	req.Progress.Report(0.5, "downloading")
	req.Progress.Report(0.9, "downloading")
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	path := req.Workspace.Path(f.artifact)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return nil, err
	}
	_ = os.Remove(partial)
	return &Artifact{Path: path}, nil
}

func newAdapter(name string, err error) *fakeAdapter {
	return &fakeAdapter{name: name, err: err, artifact: "audio.artifact", available: true}
}

func setup(t *testing.T, cfg Config, adapters ...Adapter) (*Chain, *workspace.Workspace) {
	t.Helper()
	reg := provider.NewRegistry[Adapter]()
	for _, a := range adapters {
		if err := reg.Register(a); err != nil {
			t.Fatal(err)
		}
	}
	m, err := workspace.NewManager(workspace.Config{Root: t.TempDir()}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ws, err := m.Create("test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ws.Release)
	return NewChain(reg, cfg, WithLogger(logger.Nop())), ws
}

func classify(t *testing.T, raw string) source.Classified {
	t.Helper()
	c, err := source.Classify(raw)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPlan(t *testing.T) {
	chain, _ := setup(t, Config{},
		newAdapter(AdapterYouTube, nil), newAdapter(AdapterYTDLP, nil), newAdapter(AdapterDirect, nil))

	tests := []struct {
		raw  string
		want []string
	}{
		{"https://youtu.be/dQw4w9WgXcQ", []string{AdapterYouTube, AdapterYTDLP}},
		{"https://vimeo.com/170478648", []string{AdapterYTDLP}},
		{"https://cdn.example.com/a.mp3", []string{AdapterDirect, AdapterYTDLP}},
		{"/tmp/a.wav", nil},
	}
	for _, tt := range tests {
		got := chain.Plan(classify(t, tt.raw))
		if len(got) != len(tt.want) {
			t.Errorf("Plan(%s) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Plan(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		}
	}
}

func TestPlanSkipsUnregisteredAndDuplicates(t *testing.T) {
	cfg := Config{Plans: map[string][]string{"youtube": {"missing", AdapterYTDLP}}}
	chain, _ := setup(t, cfg, newAdapter(AdapterYTDLP, nil))
	got := chain.Plan(classify(t, "https://youtu.be/dQw4w9WgXcQ"))
	if len(got) != 1 || got[0] != AdapterYTDLP {
		t.Errorf("Plan = %v, want [ytdlp]", got)
	}
}

func TestAcquire_FallsThroughToGeneric(t *testing.T) {
	native := newAdapter(AdapterYouTube, errors.Transient("youtube", "connection reset"))
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, native, generic)
	sink := &recordingSink{}

	art, attempts, err := chain.Acquire(context.Background(), classify(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"), ws, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Provenance != AdapterYTDLP || art.Path != ws.Path("audio.artifact") || !art.Owned || art.Size != 5 {
		t.Errorf("unexpected artifact %+v", art)
	}
	if len(attempts) != 2 || attempts[0].Code != errors.ErrCodeTransient || !attempts[1].Succeeded() {
		t.Errorf("unexpected attempts %+v", attempts)
	}
	if _, err := os.Stat(ws.Path(AdapterYouTube + ".part")); !os.IsNotExist(err) {
		t.Error("partial file of the failed attempt survived")
	}
	files := ws.Files()
	if len(files) != 1 || files[0] != art.Path {
		t.Errorf("tracked files = %v", files)
	}

	for i := 1; i < len(sink.values); i++ {
		if sink.values[i] < sink.values[i-1] {
			t.Fatalf("progress regressed at %d: %v", i, sink.values)
		}
	}
	if last := sink.values[len(sink.values)-1]; last != 1 {
		t.Errorf("final progress = %v, want 1", last)
	}
	if sink.stages[0] != "acquiring (youtube)" || sink.stages[len(sink.stages)-1] != "acquiring (ytdlp)" {
		t.Errorf("unexpected stages %v", sink.stages)
	}
}

func TestAcquire_NotFoundContinues(t *testing.T) {
	direct := newAdapter(AdapterDirect, errors.NotFound("media", ""))
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, direct, generic)

	art, _, err := chain.Acquire(context.Background(), classify(t, "https://cdn.example.com/a.mp3"), ws, nil)
	if err != nil || art.Provenance != AdapterYTDLP {
		t.Fatalf("art = %+v, err = %v", art, err)
	}
}

func TestAcquire_UnsupportedAborts(t *testing.T) {
	native := newAdapter(AdapterYouTube, errors.Unsupported("age restricted"))
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, native, generic)

	_, attempts, err := chain.Acquire(context.Background(), classify(t, "https://youtu.be/dQw4w9WgXcQ"), ws, nil)
	if !errors.Is(err, errors.ErrCodeUnsupportedContent) {
		t.Fatalf("expected UNSUPPORTED_CONTENT, got %v", err)
	}
	if generic.calls != 0 {
		t.Errorf("generic adapter called %d times after unsupported content", generic.calls)
	}
	if len(attempts) != 1 {
		t.Errorf("attempts = %+v", attempts)
	}
	if len(ws.Files()) != 0 {
		t.Errorf("files left behind: %v", ws.Files())
	}
}

func TestAcquire_Exhausted(t *testing.T) {
	native := newAdapter(AdapterYouTube, errors.NotFound("video", "x"))
	generic := newAdapter(AdapterYTDLP, errors.Transient("yt-dlp", "HTTP Error 503"))
	chain, ws := setup(t, Config{}, native, generic)

	_, attempts, err := chain.Acquire(context.Background(), classify(t, "https://youtu.be/dQw4w9WgXcQ"), ws, nil)
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeAcquisitionFailed {
		t.Fatalf("expected ACQUISITION_FAILED, got %v", err)
	}
	detail, ok := appErr.Details["attempts"].([]Attempt)
	if !ok || len(detail) != 2 || detail[0].Adapter != AdapterYouTube || detail[1].Adapter != AdapterYTDLP {
		t.Errorf("attempts detail = %#v", appErr.Details["attempts"])
	}
	if len(attempts) != 2 || attempts[0].Code != errors.ErrCodeNotFound {
		t.Errorf("attempts = %+v", attempts)
	}
	entries, _ := os.ReadDir(ws.Dir())
	if len(entries) != 0 {
		t.Errorf("workspace not empty after exhausted chain: %d entries", len(entries))
	}
}

func TestAcquire_PlaylistRejectedBeforeTransfer(t *testing.T) {
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, generic)

	_, _, err := chain.Acquire(context.Background(), classify(t, "https://www.youtube.com/playlist?list=PL1"), ws, nil)
	if !errors.Is(err, errors.ErrCodeUnsupportedContent) {
		t.Fatalf("expected UNSUPPORTED_CONTENT, got %v", err)
	}
	if generic.calls != 0 {
		t.Error("adapter called for a playlist")
	}
}

func TestAcquire_UnavailableAdapterSkipped(t *testing.T) {
	native := newAdapter(AdapterYouTube, nil)
	native.available = false
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, native, generic)

	art, attempts, err := chain.Acquire(context.Background(), classify(t, "https://youtu.be/dQw4w9WgXcQ"), ws, nil)
	if err != nil || art.Provenance != AdapterYTDLP {
		t.Fatalf("art = %+v, err = %v", art, err)
	}
	if native.calls != 0 || attempts[0].Code != errors.ErrCodeServiceUnavailable {
		t.Errorf("unavailable adapter handling wrong: calls=%d attempts=%+v", native.calls, attempts)
	}
}

func TestAcquire_AttemptTimeout(t *testing.T) {
	native := newAdapter(AdapterYouTube, nil)
	native.block = true
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{AttemptTimeout: 50 * time.Millisecond}, native, generic)

	art, attempts, err := chain.Acquire(context.Background(), classify(t, "https://youtu.be/dQw4w9WgXcQ"), ws, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Provenance != AdapterYTDLP || attempts[0].Code != errors.ErrCodeTimeout {
		t.Errorf("art = %+v attempts = %+v", art, attempts)
	}
}

func TestAcquire_CancelSkipsRemaining(t *testing.T) {
	native := newAdapter(AdapterYouTube, nil)
	native.block = true
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, native, generic)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, _, err := chain.Acquire(ctx, classify(t, "https://youtu.be/dQw4w9WgXcQ"), ws, nil)
	if !errors.Is(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if generic.calls != 0 {
		t.Error("remaining adapters must be skipped after cancellation")
	}
	if _, err := os.Stat(ws.Path(AdapterYouTube + ".part")); !os.IsNotExist(err) {
		t.Error("partial file survived cancellation")
	}
}

func TestAcquire_DeadlineIsTimeout(t *testing.T) {
	native := newAdapter(AdapterYouTube, nil)
	native.block = true
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, native, generic)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, attempts, err := chain.Acquire(ctx, classify(t, "https://youtu.be/dQw4w9WgXcQ"), ws, nil)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if generic.calls != 0 || len(attempts) != 1 {
		t.Errorf("chain should stop at the deadline: generic calls=%d, attempts=%d", generic.calls, len(attempts))
	}
}

func TestAcquire_EmptyArtifactRejected(t *testing.T) {
	empty := AdapterFunc(AdapterYouTube, func(_ context.Context, req Request) (*Artifact, error) {
		p := req.Workspace.Path("audio.m4a")
		_ = os.WriteFile(p, nil, 0o644)
		return &Artifact{Path: p}, nil
	})
	generic := newAdapter(AdapterYTDLP, nil)
	chain, ws := setup(t, Config{}, empty, generic)

	art, attempts, err := chain.Acquire(context.Background(), classify(t, "https://youtu.be/dQw4w9WgXcQ"), ws, nil)
	if err != nil || art.Provenance != AdapterYTDLP {
		t.Fatalf("art = %+v, err = %v", art, err)
	}
	if attempts[0].Code != errors.ErrCodeTransient {
		t.Errorf("empty artifact attempt = %+v", attempts[0])
	}
	if _, err := os.Stat(ws.Path("audio.m4a")); !os.IsNotExist(err) {
		t.Error("empty artifact not rolled back")
	}
}

func TestNewRegistryWrapsAdapters(t *testing.T) {
	reg, err := NewRegistry(Config{}, nil, newAdapter(AdapterYTDLP, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if names := reg.Names(); len(names) != 1 || names[0] != AdapterYTDLP {
		t.Errorf("names = %v", names)
	}
	if _, err := NewRegistry(Config{}, nil, newAdapter("a", nil), newAdapter("a", nil)); err == nil {
		t.Error("duplicate adapter names should fail")
	}
}

package acquire

import (
	"context"
	"strings"
	"testing"

	"github.com/kbukum/mediascribe/component"
)

type stubAdapter struct {
	name      string
	available bool
	closed    bool
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) IsAvailable(context.Context) bool { return s.available }

func (s *stubAdapter) Close(context.Context) error {
	s.closed = true
	return nil
}

func (s *stubAdapter) Execute(context.Context, Request) (*Artifact, error) {
	return nil, nil
}

func TestComponentHealth(t *testing.T) {
	tests := []struct {
		name     string
		adapters []Adapter
		want     component.HealthStatus
		message  string
	}{
		{"all available", []Adapter{&stubAdapter{name: "youtube", available: true}, &stubAdapter{name: "ytdlp", available: true}}, component.StatusHealthy, "2 adapters"},
		{"one missing", []Adapter{&stubAdapter{name: "youtube", available: true}, &stubAdapter{name: "ytdlp"}}, component.StatusDegraded, "unavailable: ytdlp"},
		{"none available", []Adapter{&stubAdapter{name: "ytdlp"}}, component.StatusUnhealthy, "no adapter available"},
		{"empty", nil, component.StatusUnhealthy, "no adapter available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewComponent(tt.adapters...).Health(context.Background())
			if h.Status != tt.want || h.Message != tt.message {
				t.Errorf("Health() = %s %q, want %s %q", h.Status, h.Message, tt.want, tt.message)
			}
		})
	}
}

func TestComponentStopClosesAdapters(t *testing.T) {
	direct := &stubAdapter{name: "direct", available: true}
	c := NewComponent(AdapterFunc("youtube", func(context.Context, Request) (*Artifact, error) { return nil, nil }), direct)

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !direct.closed {
		t.Error("closeable adapter should be closed")
	}
	if d := c.Describe(); !strings.Contains(d.Details, "youtube, direct") {
		t.Errorf("unexpected description %+v", d)
	}
}

// Package whisper is a transcription backend that talks to a faster-whisper
// HTTP sidecar. The sidecar owns the model weights; loading a selector here
// only confirms the sidecar is healthy, and every request names its model.
package whisper

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/httpclient"
	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/resilience"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/transcription"
)

const (
	// ProviderName is the registered name for the Whisper backend.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperTimeout = 30 * time.Minute
)

// Config holds configuration for the Whisper sidecar backend.
type Config struct {
	URL         string        `yaml:"url" mapstructure:"url"`
	Language    string        `yaml:"language" mapstructure:"language"`
	Device      string        `yaml:"device" mapstructure:"device"`
	ComputeType string        `yaml:"compute_type" mapstructure:"compute_type"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Auth is sent when the sidecar sits behind an authenticating proxy.
	Auth *httpclient.AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Retry re-sends an upload the sidecar failed transiently, such as a 503
	// while it is still warming a model.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultWhisperURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultWhisperTimeout
	}
}

// Loader implements transcription.Loader against the sidecar.
type Loader struct {
	cfg    Config
	client *httpclient.Client
}

var _ transcription.Loader = (*Loader)(nil)

// NewLoader creates a loader. Uploads stream the audio file from disk and
// reopen it on every retry.
func NewLoader(cfg Config) (*Loader, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		Name:       ProviderName,
		BaseURL:    cfg.URL,
		Timeout:    cfg.Timeout,
		Auth:       cfg.Auth,
		Resilience: provider.ResilienceConfig{Retry: cfg.Retry},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Loader{cfg: cfg, client: client}, nil
}

// Name returns the provider name.
func (l *Loader) Name() string { return ProviderName }

// IsAvailable checks if the Whisper sidecar is reachable.
func (l *Loader) IsAvailable(ctx context.Context) bool {
	return l.health(ctx) == nil
}

// Close releases idle connections.
func (l *Loader) Close(ctx context.Context) error { return l.client.Close(ctx) }

// Load checks the sidecar and returns an engine bound to sel.
func (l *Loader) Load(ctx context.Context, sel source.Selector) (transcription.Engine, error) {
	if err := l.health(ctx); err != nil {
		return nil, err
	}
	return newEngine(l, sel), nil
}

func (l *Loader) health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := l.client.Do(ctx, httpclient.Request{Path: "/health"})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return errors.ServiceUnavailable(ProviderName).WithDetail("status", resp.StatusCode)
	}
	return nil
}

// Engine transcribes through the sidecar with a fixed model. It adapts the
// sidecar's upload call to the transcription.Engine shape.
type Engine struct {
	model source.Selector
	rr    provider.RequestResponse[string, *transcription.Transcript]
}

func newEngine(l *Loader, model source.Selector) *Engine {
	sidecar := provider.Func(ProviderName+"-sidecar", l.upload)
	rr := provider.Adapt(sidecar, ProviderName,
		func(_ context.Context, audioPath string) (sidecarRequest, error) {
			return l.request(audioPath, model), nil
		},
		func(resp *whisperResponse) (*transcription.Transcript, error) {
			return toTranscript(resp, model), nil
		},
	)
	return &Engine{model: model, rr: rr}
}

// Name returns the provider name.
func (e *Engine) Name() string { return ProviderName }

// Transcribe uploads the audio file to the sidecar and returns the transcription.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) (*transcription.Transcript, error) {
	return e.rr.Execute(ctx, audioPath)
}

type sidecarRequest struct {
	path   string
	fields map[string]string
}

func (l *Loader) request(audioPath string, model source.Selector) sidecarRequest {
	fields := map[string]string{"model": string(model)}
	if l.cfg.Language != "" {
		fields["language"] = l.cfg.Language
	}
	if l.cfg.Device != "" {
		fields["device"] = l.cfg.Device
	}
	if l.cfg.ComputeType != "" {
		fields["compute_type"] = l.cfg.ComputeType
	}
	return sidecarRequest{path: audioPath, fields: fields}
}

func (l *Loader) upload(ctx context.Context, req sidecarRequest) (*whisperResponse, error) {
	if _, err := os.Stat(req.path); err != nil {
		return nil, errors.TranscriptionFailed("audio file is unreadable", err)
	}

	resp, err := l.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: req.fields,
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				Path:        req.path,
				ContentType: "audio/wav",
			}},
		},
	})
	if err != nil {
		return nil, err
	}

	var result whisperResponse
	if err := resp.Decode(&result); err != nil {
		return nil, errors.TranscriptionFailed("unreadable sidecar response", err)
	}
	return &result, nil
}

// --- internal Whisper API response types ---

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func toTranscript(resp *whisperResponse, model source.Selector) *transcription.Transcript {
	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	duration := resp.Duration
	if duration == 0 && len(resp.Segments) > 0 {
		duration = resp.Segments[len(resp.Segments)-1].End
	}

	return &transcription.Transcript{
		Text:     resp.Text,
		Segments: segments,
		Duration: duration,
		Language: resp.Language,
		Model:    model,
	}
}

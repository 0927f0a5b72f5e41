package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/resilience"
)

func TestClient_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/models/base" {
			t.Errorf("expected /models/base, got %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "mediascribe" {
			t.Errorf("expected default user agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "base"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{Path: "/models/base"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var model struct{ Name string }
	if err := resp.Decode(&model); err != nil || model.Name != "base" {
		t.Errorf("decode = %+v, %v (body %s)", model, err, resp.Body)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("header = %v", resp.Header)
	}
}

func TestClient_Do_MergesHeadersAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/transcribe" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query(); got.Get("lang") != "en" || got.Get("beam") != "5" {
			t.Errorf("query = %v", got)
		}
		if r.Header.Get("X-Team") != "media" || r.Header.Get("User-Agent") != "probe/1" {
			t.Errorf("headers = %v", r.Header)
		}
		if r.Header.Get("X-Sidecar-Key") != "override" || r.Header.Get("Authorization") != "" {
			t.Errorf("request auth must replace client auth: %v", r.Header)
		}
	}))
	defer srv.Close()

	c, _ := New(Config{
		BaseURL: srv.URL + "/api/v2/",
		Headers: map[string]string{"X-Team": "media", "User-Agent": "ignored"},
		Auth:    BearerAuth("client-token"),
	})
	_, err := c.Do(context.Background(), Request{
		Path:   "transcribe",
		Header: http.Header{"user-agent": {"probe/1"}},
		Query:  url.Values{"lang": {"en"}, "beam": {"5"}},
		Auth:   APIKeyAuth("override", "X-Sidecar-Key"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Do_POST_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "small" {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Auth: BearerAuth("secret")})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/load",
		Body:   map[string]string{"model": "small"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      errors.ErrorCode
		retryable bool
	}{
		{http.StatusForbidden, errors.ErrCodeNotFound, false},
		{http.StatusNotFound, errors.ErrCodeNotFound, false},
		{http.StatusGone, errors.ErrCodeNotFound, false},
		{http.StatusTooManyRequests, errors.ErrCodeRateLimited, true},
		{http.StatusBadGateway, errors.ErrCodeServiceUnavailable, true},
		{http.StatusBadRequest, errors.ErrCodeExternalService, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyStatusCode("media", tt.status, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Code != tt.code {
				t.Errorf("code = %s, want %s", err.Code, tt.code)
			}
			if errors.IsTransient(err) != tt.retryable {
				t.Errorf("IsTransient = %v, want %v", errors.IsTransient(err), tt.retryable)
			}
			if StatusCode(err) != tt.status {
				t.Errorf("StatusCode = %d, want %d", StatusCode(err), tt.status)
			}
		})
	}
	if ClassifyStatusCode("media", http.StatusOK, nil) != nil {
		t.Error("2xx must not be an error")
	}
}

func TestClient_Do_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	retry.MaxBackoff = time.Millisecond
	c, _ := New(Config{BaseURL: srv.URL, Resilience: provider.ResilienceConfig{Retry: &retry}})

	resp, err := c.Do(context.Background(), Request{Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "ok" || calls.Load() != 3 {
		t.Errorf("body = %q, calls = %d", resp.Body, calls.Load())
	}
}

func TestClient_Do_NotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	c, _ := New(Config{BaseURL: srv.URL, Resilience: provider.ResilienceConfig{Retry: &retry}})

	_, err := c.Do(context.Background(), Request{Path: "/"})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestClient_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	_, err := c.Do(context.Background(), Request{Path: "/"})
	if !errors.Is(err, errors.ErrCodeConnectionFailed) {
		t.Fatalf("expected CONNECTION_FAILED, got %v", err)
	}
}

func TestClient_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Do(ctx, Request{Path: "/"})
	if !errors.Is(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
}

func TestClient_Download(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 100*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c, _ := New(Config{})
	var buf bytes.Buffer
	var last int64
	n, err := c.Download(context.Background(), Request{Path: srv.URL + "/clip.mp3"}, &buf, func(written, _ int64) {
		if written < last {
			t.Errorf("progress regressed: %d < %d", written, last)
		}
		last = written
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != int64(len(payload)) || buf.Len() != len(payload) || last != n {
		t.Errorf("n = %d, buf = %d, last = %d", n, buf.Len(), last)
	}
}

func TestClient_DoStream_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := New(Config{})
	_, err := c.DoStream(context.Background(), Request{Path: srv.URL})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if StatusCode(err) != http.StatusForbidden {
		t.Errorf("status = %d", StatusCode(err))
	}
}

func TestClient_DoStream_Size(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/ogg")
		if r.URL.Path == "/sized" {
			w.Header().Set("Content-Length", "4")
			_, _ = w.Write([]byte("OggS"))
			return
		}
		_, _ = w.Write([]byte("Og"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("gS"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	for path, want := range map[string]int64{"/sized": 4, "/chunked": -1} {
		stream, err := c.DoStream(context.Background(), Request{Path: path})
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		body, _ := io.ReadAll(stream.Body)
		_ = stream.Close()
		if stream.Size != want || stream.ContentType != "audio/ogg" || string(body) != "OggS" {
			t.Errorf("%s: size=%d type=%q body=%q", path, stream.Size, stream.ContentType, body)
		}
	}
}

func TestMultipartBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("model") != "base" {
			t.Errorf("model = %q", r.FormValue("model"))
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "audio.wav" || string(data) != "RIFF" {
			t.Errorf("file %s = %q", hdr.Filename, data)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("part content type = %q", ct)
		}
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &MultipartBody{
			Fields: map[string]string{"model": "base"},
			Files:  []FileField{{FieldName: "audio", ContentType: "audio/wav", Path: path}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMultipartBody_MissingFile(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Body:   &MultipartBody{Files: []FileField{{FieldName: "audio", Path: "/does/not/exist.wav"}}},
	})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if called {
		t.Error("request must not be sent")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != 30*time.Second || cfg.Name != "http" || cfg.UserAgent != "mediascribe" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestClient_RetryAfterHint(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var waited time.Duration
	retry := resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		OnRetry:        func(_ int, _ error, backoff time.Duration) { waited = backoff },
	}
	c, _ := New(Config{BaseURL: srv.URL, Resilience: provider.ResilienceConfig{Retry: &retry}})

	if _, err := c.Do(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited != retry.MaxBackoff {
		t.Errorf("waited %v, want the 1s hint capped at %v", waited, retry.MaxBackoff)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := map[string]time.Duration{
		"":                              0,
		"120":                           2 * time.Minute,
		"-3":                            0,
		"Sun, 01 Mar 2026 12:00:30 GMT": 30 * time.Second,
		"Sun, 01 Mar 2026 11:00:00 GMT": 0,
		"later":                         0,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in, now); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

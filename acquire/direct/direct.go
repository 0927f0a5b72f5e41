// Package direct acquires media that is served as a plain file over HTTP,
// such as a podcast enclosure or a link to an .mp3. It is the first strategy
// for URLs outside every known provider family; pages that are not media
// fall through to the generic extractor.
package direct

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/httpclient"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/source"
)

const defaultMaxBytes = 2 << 30

// Config configures the adapter.
type Config struct {
	// HTTP configures the underlying client.
	HTTP httpclient.Config `yaml:"http" mapstructure:"http"`
	// MaxBytes rejects larger files as unsupported. Defaults to 2 GiB.
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Name == "" {
		c.HTTP.Name = "direct"
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
	c.HTTP.ApplyDefaults()
}

// Adapter downloads direct media links.
type Adapter struct {
	client *httpclient.Client
	cfg    Config
	log    *logger.Logger
}

var _ acquire.Adapter = (*Adapter)(nil)

// New creates the adapter.
func New(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(cfg.HTTP)
	if err != nil {
		return nil, fmt.Errorf("direct: %w", err)
	}
	return &Adapter{client: client, cfg: cfg, log: logger.Get("acquire.direct")}, nil
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return acquire.AdapterDirect }

// IsAvailable reports false while the client's circuit breaker is open.
func (a *Adapter) IsAvailable(ctx context.Context) bool { return a.client.IsAvailable(ctx) }

// Close releases idle connections.
func (a *Adapter) Close(ctx context.Context) error { return a.client.Close(ctx) }

// Execute streams the response body into the workspace when it is audio or
// video. Anything else is reported as NOT_FOUND so the chain moves on.
func (a *Adapter) Execute(ctx context.Context, req acquire.Request) (*acquire.Artifact, error) {
	if req.Source.Kind != source.KindGenericHTTP || req.Source.URL == nil {
		return nil, errors.NotFound("direct media", req.Source.Raw)
	}
	link := req.Source.URL.String()

	stream, err := a.client.DoStream(ctx, httpclient.Request{
		Path:   link,
		Header: http.Header{"Accept": {"audio/*, video/*;q=0.9, */*;q=0.1"}},
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	ext, ok := mediaExtension(stream.ContentType, req.Source.URL.Path)
	if !ok {
		return nil, errors.NotFound("direct media", link).
			WithDetail("reason", "not a media file").
			WithDetail("content_type", stream.ContentType)
	}
	if stream.Size > a.cfg.MaxBytes {
		return nil, errors.Unsupported(fmt.Sprintf("media is %d bytes, the limit is %d", stream.Size, a.cfg.MaxBytes))
	}

	dst := req.Workspace.Path("audio" + ext)
	if err := req.Workspace.Track(dst); err != nil {
		return nil, err
	}
	f, err := os.Create(dst)
	if err != nil {
		return nil, errors.Internal(err)
	}

	sink := req.Progress
	written, err := httpclient.Copy(ctx, &limitWriter{w: f, max: a.cfg.MaxBytes}, stream.Body, stream.Size, func(n, total int64) {
		if sink != nil && total > 0 {
			sink.Report(float64(n)/float64(total), "downloading")
		}
	})
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = errors.Internal(closeErr)
	}
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.Canceled("direct download").WithCause(err)
		}
		return nil, errors.Transient("direct download", "transfer interrupted").WithCause(err)
	}
	if stream.Size > 0 && written < stream.Size {
		return nil, errors.Transient("direct download", fmt.Sprintf("short read: %d of %d bytes", written, stream.Size))
	}

	a.log.WithContext(ctx).Debug("downloaded direct media", logger.Fields(
		logger.FieldPath, dst,
		"bytes", written,
		"content_type", stream.ContentType,
	))
	return &acquire.Artifact{Path: dst, Size: written}, nil
}

// mediaExtension decides whether a response is media and which extension
// the stored file gets. The URL extension wins for generic binary types.
func mediaExtension(contentType, urlPath string) (string, bool) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	urlExt := strings.ToLower(path.Ext(urlPath))
	_, knownExt := mediaExts[urlExt]

	switch {
	case strings.HasPrefix(mediaType, "audio/"), strings.HasPrefix(mediaType, "video/"):
		if knownExt {
			return urlExt, true
		}
		if ext, ok := typeExts[mediaType]; ok {
			return ext, true
		}
		return ".media", true
	case mediaType == "application/octet-stream", mediaType == "binary/octet-stream", mediaType == "":
		if knownExt {
			return urlExt, true
		}
	}
	return "", false
}

var mediaExts = map[string]struct{}{
	".mp3": {}, ".m4a": {}, ".aac": {}, ".wav": {}, ".flac": {}, ".ogg": {}, ".oga": {},
	".opus": {}, ".webm": {}, ".mp4": {}, ".m4v": {}, ".mov": {}, ".mkv": {},
}

var typeExts = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/aac":   ".aac",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/flac":  ".flac",
	"audio/ogg":   ".ogg",
	"audio/opus":  ".opus",
	"audio/webm":  ".webm",
	"video/mp4":   ".mp4",
	"video/webm":  ".webm",
}

// limitWriter fails once more than max bytes were written, for servers that
// did not announce a length.
type limitWriter struct {
	w   io.Writer
	n   int64
	max int64
}

func (l *limitWriter) Write(p []byte) (int, error) {
	if l.n+int64(len(p)) > l.max {
		return 0, errors.Unsupported(fmt.Sprintf("media exceeds the %d byte limit", l.max))
	}
	n, err := l.w.Write(p)
	l.n += int64(n)
	return n, err
}

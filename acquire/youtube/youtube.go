// Package youtube is the provider-native acquisition adapter for the youtube
// family. It resolves stream metadata first, so live streams and restricted
// videos are rejected before any media bytes move, then downloads the
// highest-bitrate audio-only stream with byte-level progress.
package youtube

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/httpclient"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/source"
)

// Config configures the adapter.
type Config struct {
	// MaxDuration rejects longer videos as unsupported. Zero disables the check.
	MaxDuration time.Duration `yaml:"max_duration" mapstructure:"max_duration"`
}

// Client is the subset of the YouTube client the adapter uses.
type Client interface {
	GetVideoContext(ctx context.Context, url string) (*yt.Video, error)
	GetStreamContext(ctx context.Context, video *yt.Video, format *yt.Format) (io.ReadCloser, int64, error)
}

// Adapter downloads audio through the YouTube player API.
type Adapter struct {
	client Client
	cfg    Config
	log    *logger.Logger
}

var _ acquire.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithClient replaces the YouTube client.
func WithClient(c Client) Option {
	return func(a *Adapter) { a.client = c }
}

// New creates the adapter.
func New(cfg Config, opts ...Option) *Adapter {
	a := &Adapter{
		client: &yt.Client{},
		cfg:    cfg,
		log:    logger.Get("acquire.youtube"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return acquire.AdapterYouTube }

// IsAvailable always reports true; the adapter has no local dependency.
func (a *Adapter) IsAvailable(context.Context) bool { return true }

// Execute downloads the best audio-only stream into the workspace.
func (a *Adapter) Execute(ctx context.Context, req acquire.Request) (*acquire.Artifact, error) {
	if req.Source.Family != source.FamilyYouTube {
		return nil, errors.NotFound("youtube video", req.Source.Raw)
	}
	ref := req.Source.MediaID
	if ref == "" {
		ref = req.Source.URL.String()
	}

	video, err := a.client.GetVideoContext(ctx, ref)
	if err != nil {
		return nil, classify(ctx, err, ref)
	}
	if err := a.check(video); err != nil {
		return nil, err
	}

	format := bestAudio(video.Formats)
	if format == nil {
		return nil, errors.NotFound("audio stream", video.ID)
	}

	stream, size, err := a.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, classify(ctx, err, ref)
	}
	defer func() { _ = stream.Close() }()

	path := req.Workspace.Path("audio" + extension(format.MimeType))
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := req.Workspace.Track(path); err != nil {
		_ = f.Close()
		return nil, err
	}

	a.log.WithContext(ctx).Debug("downloading audio stream", logger.Fields(
		"video_id", video.ID,
		"itag", format.ItagNo,
		"mime", format.MimeType,
		"bitrate", format.Bitrate,
	))

	sink := req.Progress
	written, copyErr := httpclient.Copy(ctx, f, stream, size, func(n, total int64) {
		if total > 0 && sink != nil {
			sink.Report(float64(n)/float64(total), "downloading")
		}
	})
	if closeErr := f.Close(); copyErr == nil && closeErr != nil {
		copyErr = errors.Internal(closeErr)
	}
	if copyErr != nil {
		return nil, classify(ctx, copyErr, ref)
	}
	if size > 0 && written < size {
		return nil, errors.Transient("youtube download", fmt.Sprintf("stream ended after %d of %d bytes", written, size))
	}
	return &acquire.Artifact{Path: path, Size: written}, nil
}

// check rejects content no download can turn into a finite audio file.
func (a *Adapter) check(v *yt.Video) error {
	if v.HLSManifestURL != "" && v.Duration == 0 {
		return errors.Unsupported("live streams are not supported")
	}
	if a.cfg.MaxDuration > 0 && v.Duration > a.cfg.MaxDuration {
		return errors.Unsupported(fmt.Sprintf("video is %s long, the limit is %s", v.Duration, a.cfg.MaxDuration))
	}
	return nil
}

// bestAudio picks the audio-only format with the highest bitrate.
func bestAudio(formats yt.FormatList) *yt.Format {
	candidates := make([]*yt.Format, 0, len(formats))
	for i := range formats {
		if strings.HasPrefix(formats[i].MimeType, "audio/") {
			candidates = append(candidates, &formats[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return candidates[0]
}

func extension(mime string) string {
	switch {
	case strings.HasPrefix(mime, "audio/mp4"):
		return ".m4a"
	case strings.HasPrefix(mime, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(mime, "audio/mpeg"):
		return ".mp3"
	}
	return ".audio"
}

// classify maps client errors onto the taxonomy.
func classify(ctx context.Context, err error, ref string) error {
	if errors.IsAppError(err) && !errors.Is(err, errors.ErrCodeInternal) {
		return err
	}
	switch {
	case ctx.Err() != nil:
		return errors.Canceled("youtube download").WithCause(err)
	case stderrors.Is(err, yt.ErrVideoPrivate):
		return errors.NotFound("youtube video", ref).WithCause(err).WithDetail("reason", "private")
	case stderrors.Is(err, yt.ErrLoginRequired):
		return errors.Unsupported("video is age restricted").WithCause(err)
	case stderrors.Is(err, yt.ErrNotPlayableInEmbed):
		// The generic extractor uses a different client and can often still play these.
		return errors.Transient("youtube", "stream is not playable by this client").WithCause(err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "login_required"), strings.Contains(msg, "sign in to confirm your age"):
		return errors.Unsupported("video is age restricted").WithCause(err)
	case strings.Contains(msg, "not available in your country"):
		return errors.Unsupported("video is region restricted").WithCause(err)
	case strings.Contains(msg, "status: error"), strings.Contains(msg, "video unavailable"),
		strings.Contains(msg, "status: unplayable"):
		return errors.NotFound("youtube video", ref).WithCause(err)
	case strings.Contains(msg, "live stream"):
		return errors.Unsupported("live streams are not supported").WithCause(err)
	}
	return errors.Transient("youtube", "download interrupted").WithCause(err)
}

package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/process"
)

const artifactBase = "audio"

var progressLine = regexp.MustCompile(`^\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)

// Adapter acquires audio with yt-dlp.
type Adapter struct {
	cfg       Config
	exec      process.Executor
	available func() bool
	log       *logger.Logger
}

var _ acquire.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithExecutor replaces the subprocess executor.
func WithExecutor(e process.Executor) Option {
	return func(a *Adapter) { a.exec = e }
}

// WithAvailability replaces the binary lookup used by IsAvailable.
func WithAvailability(fn func() bool) Option {
	return func(a *Adapter) { a.available = fn }
}

// New creates the adapter.
func New(cfg Config, opts ...Option) *Adapter {
	cfg.ApplyDefaults()
	a := &Adapter{
		cfg:  cfg,
		exec: process.Local,
		log:  logger.Get("acquire.ytdlp"),
	}
	a.available = func() bool { return process.Available(a.cfg.Binary) }
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return acquire.AdapterYTDLP }

// IsAvailable reports whether the yt-dlp binary can be found.
func (a *Adapter) IsAvailable(context.Context) bool { return a.available() }

// Execute probes the media, then extracts its audio into the workspace.
func (a *Adapter) Execute(ctx context.Context, req acquire.Request) (*acquire.Artifact, error) {
	if req.Source.URL == nil {
		return nil, errors.InvalidInput("source", "yt-dlp needs a URL")
	}
	url := req.Source.URL.String()

	info, err := a.probe(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := a.check(info); err != nil {
		return nil, err
	}

	sink := req.Progress
	args := []string{
		"-f", a.cfg.Format,
		"-x", "--audio-format", a.cfg.AudioFormat,
		"--no-playlist",
		"--newline",
		"--no-warnings",
		"--socket-timeout", strconv.Itoa(int(a.cfg.SocketTimeout.Seconds())),
		"-o", filepath.Join(req.Workspace.Dir(), artifactBase+".%(ext)s"),
	}
	args = append(args, a.cfg.ExtraArgs...)
	args = append(args, url)

	res, err := a.exec.Run(ctx, process.Command{
		Binary: a.cfg.Binary,
		Args:   args,
		OnStdoutLine: func(line string) {
			if pct, ok := parseProgress(line); ok && sink != nil {
				sink.Report(pct, "downloading")
			}
		},
	})
	if err != nil {
		return nil, a.runFailed(ctx, "download", res, err)
	}

	path, size, err := findArtifact(req.Workspace.Dir())
	if err != nil {
		return nil, err
	}
	if err := req.Workspace.Track(path); err != nil {
		return nil, err
	}
	return &acquire.Artifact{Path: path, Size: size}, nil
}

// mediaInfo is the subset of yt-dlp's --dump-single-json output the adapter reads.
type mediaInfo struct {
	Type         string  `json:"_type"`
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Extractor    string  `json:"extractor_key"`
	Duration     float64 `json:"duration"`
	IsLive       bool    `json:"is_live"`
	LiveStatus   string  `json:"live_status"`
	Availability string  `json:"availability"`
}

func (a *Adapter) probe(ctx context.Context, url string) (*mediaInfo, error) {
	probeCtx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--skip-download",
		"--no-warnings",
		"--socket-timeout", strconv.Itoa(int(a.cfg.SocketTimeout.Seconds())),
	}
	args = append(args, a.cfg.ExtraArgs...)
	args = append(args, url)

	res, err := a.exec.Run(probeCtx, process.Command{Binary: a.cfg.Binary, Args: args})
	if err != nil {
		return nil, a.runFailed(ctx, "probe", res, err)
	}
	var info mediaInfo
	if err := json.Unmarshal(res.Stdout, &info); err != nil {
		return nil, errors.Transient("yt-dlp probe", "unreadable metadata").WithCause(err)
	}
	a.log.WithContext(ctx).Debug("probed media", logger.Fields(
		"extractor", info.Extractor,
		"media_id", info.ID,
		"duration_s", info.Duration,
		"live_status", info.LiveStatus,
	))
	return &info, nil
}

// check applies the pre-transfer content rules to probed metadata.
func (a *Adapter) check(info *mediaInfo) error {
	switch {
	case info.Type == "playlist" || info.Type == "multi_video":
		return errors.Unsupported("playlists are not supported, submit a single video URL")
	case info.IsLive || info.LiveStatus == "is_live" || info.LiveStatus == "is_upcoming":
		return errors.Unsupported("live streams are not supported")
	}
	switch info.Availability {
	case "private":
		return errors.NotFound("media", info.ID).WithDetail("reason", "private")
	case "needs_auth", "premium_only", "subscriber_only":
		return errors.Unsupported("media requires an account (" + info.Availability + ")")
	}
	if a.cfg.MaxDuration > 0 && info.Duration > a.cfg.MaxDuration.Seconds() {
		d := time.Duration(info.Duration * float64(time.Second)).Round(time.Second)
		return errors.Unsupported(fmt.Sprintf("media is %s long, the limit is %s", d, a.cfg.MaxDuration))
	}
	return nil
}

func parseProgress(line string) (float64, bool) {
	m := progressLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct / 100, true
}

// findArtifact locates the extracted "audio.<ext>" file, ignoring
// in-progress fragments.
func findArtifact(dir string) (string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, errors.Internal(err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, artifactBase+".") {
			continue
		}
		switch filepath.Ext(name) {
		case ".part", ".ytdl", ".temp", ".tmp":
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", 0, errors.Transient("yt-dlp", "finished without producing an audio file")
	}
	sort.Strings(names)
	path := filepath.Join(dir, names[0])
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, errors.Internal(err)
	}
	return path, info.Size(), nil
}

// runFailed logs the stderr tail of a failed run and classifies it.
func (a *Adapter) runFailed(ctx context.Context, step string, res *process.Result, err error) error {
	a.log.WithContext(ctx).Warn("yt-dlp failed", logger.Fields(
		"step", step,
		"stderr", res.StderrTail(5),
		logger.FieldError, err.Error(),
	))
	return classifyRun(ctx, res, err)
}

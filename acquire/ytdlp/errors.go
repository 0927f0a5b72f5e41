package ytdlp

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/process"
)

type rule struct {
	needles []string
	build   func() *errors.AppError
}

// rules are matched in order against lowercased stderr.
var rules = []rule{
	{[]string{"ffmpeg not found", "ffprobe and ffmpeg not found", "ffprobe/avprobe and ffmpeg/avconv not found"}, func() *errors.AppError {
		return errors.ServiceUnavailable("ffmpeg")
	}},
	{[]string{"private video", "this video is private"}, func() *errors.AppError {
		return errors.NotFound("media", "").WithDetail("reason", "private")
	}},
	{[]string{"sign in to confirm your age", "age-restricted", "age restricted"}, func() *errors.AppError {
		return errors.Unsupported("media is age restricted")
	}},
	{[]string{"not available in your country", "geo restriction", "geo-restricted", "from your location"}, func() *errors.AppError {
		return errors.Unsupported("media is region restricted")
	}},
	{[]string{"drm protected", "this video is drm", "members-only", "join this channel", "requires payment"}, func() *errors.AppError {
		return errors.Unsupported("media is protected or paywalled")
	}},
	{[]string{"live event will begin", "is live", "premieres in"}, func() *errors.AppError {
		return errors.Unsupported("live streams are not supported")
	}},
	{[]string{"http error 429", "too many requests"}, func() *errors.AppError {
		return errors.RateLimited().WithDetail("service", "yt-dlp")
	}},
	{[]string{"video unavailable", "http error 404", "http error 410", "has been removed", "does not exist", "not found"}, func() *errors.AppError {
		return errors.NotFound("media", "")
	}},
	{[]string{"unsupported url"}, func() *errors.AppError {
		return errors.NotFound("media", "").WithDetail("reason", "no extractor for this URL")
	}},
}

// classifyRun maps a failed yt-dlp invocation onto the taxonomy. stderr only
// selects the code; it never reaches the error's message or details.
func classifyRun(ctx context.Context, res *process.Result, err error) error {
	switch {
	case stderrors.Is(ctx.Err(), context.Canceled):
		return errors.Canceled("yt-dlp").WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("yt-dlp").WithCause(err)
	case stderrors.Is(err, process.ErrBinaryNotFound):
		return errors.ServiceUnavailable("yt-dlp").WithCause(err)
	}

	tail := res.StderrTail(5)
	lower := strings.ToLower(tail)
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(lower, needle) {
				return r.build().WithCause(err)
			}
		}
	}
	return errors.Transient("yt-dlp", "extractor exited with an error").WithCause(err)
}

package transcription

import (
	"context"

	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/source"
)

// Transcript is the result of a transcription call.
type Transcript struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Segments contains time-aligned transcript segments.
	Segments []Segment `json:"segments,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or requested language.
	Language string `json:"language,omitempty"`
	// Model is the selector of the engine that produced the transcript.
	Model source.Selector `json:"model,omitempty"`
}

// Segment is a time-aligned portion of a transcript.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
}

// Engine is a loaded transcription model. Implementations must be safe for
// concurrent use since the cache shares one engine across jobs.
type Engine interface {
	// Name identifies the backend, e.g. "whisper".
	Name() string
	// Transcribe reads the audio file at audioPath. It never deletes it.
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)
}

// Loader creates engines for a model selector.
type Loader interface {
	provider.Provider
	// Load prepares the model named by sel. It may block for a long time
	// while weights are downloaded or read into memory.
	Load(ctx context.Context, sel source.Selector) (Engine, error)
}

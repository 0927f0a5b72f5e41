package acquire

import (
	"context"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/progress"
	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/workspace"
)

// Request is the input of a single adapter attempt.
type Request struct {
	Source    source.Classified
	Workspace *workspace.Workspace
	// Progress receives the adapter's own 0..1 progress. The chain rescales
	// it into the attempt's slice of the acquiring phase.
	Progress progress.Sink
}

// Artifact is an audio file produced for transcription.
type Artifact struct {
	// Path is the file location, inside the workspace when Owned.
	Path string `json:"path"`
	// Provenance names the adapter that produced the file.
	Provenance string `json:"provenance"`
	// Owned is true when the workspace created the file and will delete it.
	// Caller-supplied local files are never owned.
	Owned bool `json:"owned"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
}

// Adapter is the capability every provider adapter implements.
type Adapter = provider.RequestResponse[Request, *Artifact]

// AdapterFunc builds an Adapter from a function, mostly for tests and small
// adapters with no availability check.
func AdapterFunc(name string, fn func(ctx context.Context, req Request) (*Artifact, error)) Adapter {
	return provider.Func(name, fn)
}

// Attempt records the outcome of one adapter in a chain run.
type Attempt struct {
	Adapter  string           `json:"adapter"`
	Code     errors.ErrorCode `json:"code,omitempty"`
	Message  string           `json:"message,omitempty"`
	Duration time.Duration    `json:"-"`
	Artifact *Artifact        `json:"-"`
}

// Succeeded reports whether the attempt produced an artifact.
func (a Attempt) Succeeded() bool {
	return a.Artifact != nil
}

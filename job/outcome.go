package job

import (
	"time"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/transcription"
)

// EventType distinguishes job events.
type EventType string

// Event types.
const (
	EventState    EventType = "state"
	EventProgress EventType = "progress"
)

// Event is one entry in a job's ordered history.
type Event struct {
	Seq      int       `json:"seq"`
	Time     time.Time `json:"time"`
	Type     EventType `json:"type"`
	State    State     `json:"state"`
	Fraction float64   `json:"fraction,omitempty"`
	Stage    string    `json:"stage,omitempty"`
	// Error is set on the transition into failed.
	Error *errors.ErrorBody `json:"error,omitempty"`
}

// Outcome is the final record of a job.
type Outcome struct {
	JobID      string                    `json:"job_id"`
	State      State                     `json:"state"`
	Model      string                    `json:"model,omitempty"`
	Source     string                    `json:"source"`
	Provenance string                    `json:"provenance,omitempty"`
	Events     []Event                   `json:"events"`
	Attempts   []acquire.Attempt         `json:"attempts,omitempty"`
	Transcript *transcription.Transcript `json:"transcript,omitempty"`
	Err        *errors.AppError          `json:"-"`
	StartedAt  time.Time                 `json:"started_at"`
	Duration   time.Duration             `json:"duration"`
}

// Result is the flat view handed to presentation layers: either a
// transcript, or a machine-readable kind with a human-readable message.
type Result struct {
	JobID      string `json:"job_id"`
	Transcript string `json:"transcript,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Succeeded reports whether the job completed.
func (o *Outcome) Succeeded() bool { return o.State == StateCompleted }

// Result flattens the outcome. Internal causes are never included.
func (o *Outcome) Result() Result {
	r := Result{JobID: o.JobID}
	if o.Succeeded() && o.Transcript != nil {
		r.Transcript = o.Transcript.Text
		return r
	}
	err := o.Err
	if err == nil {
		err = errors.Internal(nil)
	}
	r.ErrorKind = string(err.Code)
	r.Message = err.Message
	return r
}

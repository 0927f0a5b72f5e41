package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/mediascribe/job"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/sse"
)

// jobRecord holds the published history of one job.
type jobRecord struct {
	events  []sse.Event
	started bool
	done    bool
}

// JobEvents records job events and fans them out to SSE subscribers. It is
// installed as the orchestrator's listener. Subscribers receive the recorded
// history first and then live events, so a stream opened at any point shows
// the whole job. A reconnecting client resumes after its Last-Event-ID.
type JobEvents struct {
	hub     *sse.Hub
	history int
	log     *logger.Logger

	mu      sync.Mutex
	records map[string]*jobRecord
	order   []string
}

// NewJobEvents creates a recorder that keeps at most history jobs. Running
// jobs are never evicted.
func NewJobEvents(hub *sse.Hub, history int) *JobEvents {
	if history <= 0 {
		history = 100
	}
	return &JobEvents{
		hub:     hub,
		history: history,
		log:     logger.Get("job-events"),
		records: make(map[string]*jobRecord),
	}
}

// Claim marks jobID as started. It fails when a job with that ID already ran
// or is running; a record created by an early subscriber is fine.
func (je *JobEvents) Claim(jobID string) error {
	je.mu.Lock()
	defer je.mu.Unlock()
	rec := je.recordLocked(jobID)
	if rec.started {
		return fmt.Errorf("job %s already exists", jobID)
	}
	rec.started = true
	return nil
}

// Abandon undoes Claim for a job that never ran.
func (je *JobEvents) Abandon(jobID string) {
	je.mu.Lock()
	defer je.mu.Unlock()
	if rec, ok := je.records[jobID]; ok && len(rec.events) == 0 {
		rec.started = false
	}
}

// Publish records ev and broadcasts it to the job's subscribers. Its
// signature matches job.Listener.
func (je *JobEvents) Publish(jobID string, ev job.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		je.log.Error("failed to encode job event", logger.Fields(logger.FieldJobID, jobID, logger.FieldError, err.Error()))
		return
	}
	final := ev.Type == job.EventState && ev.State.Terminal()
	out := sse.Event{ID: int64(ev.Seq), Type: string(ev.Type), Data: data, Final: final}

	je.mu.Lock()
	rec := je.recordLocked(jobID)
	rec.started = true
	rec.events = append(rec.events, out)
	rec.done = final
	je.mu.Unlock()

	je.hub.Broadcast(subscriberPattern(jobID), out)
}

// Snapshot returns a copy of the events recorded for jobID.
func (je *JobEvents) Snapshot(jobID string) []sse.Event {
	je.mu.Lock()
	defer je.mu.Unlock()
	rec, ok := je.records[jobID]
	if !ok {
		return nil
	}
	return append([]sse.Event(nil), rec.events...)
}

// Len returns the number of recorded jobs.
func (je *JobEvents) Len() int {
	je.mu.Lock()
	defer je.mu.Unlock()
	return len(je.records)
}

// Stream serves the event stream of jobID on the hub. The stream ends after
// the job's terminal state event.
func (je *JobEvents) Stream(w http.ResponseWriter, r *http.Request, jobID string) {
	je.mu.Lock()
	je.recordLocked(jobID)
	je.mu.Unlock()

	clientID := fmt.Sprintf("job:%s:%s", jobID, uuid.NewString())
	sse.ServeSSE(je.hub, w, r, clientID,
		sse.WithClientOptions(sse.WithMetadata("job_id", jobID)),
		sse.WithReplay(func() []sse.Event { return je.Snapshot(jobID) }),
	)
}

// recordLocked returns the record for jobID, creating it and evicting the
// oldest finished or never-started records beyond the history limit.
func (je *JobEvents) recordLocked(jobID string) *jobRecord {
	if rec, ok := je.records[jobID]; ok {
		return rec
	}
	rec := &jobRecord{}
	je.records[jobID] = rec
	je.order = append(je.order, jobID)

	for i := 0; len(je.records) > je.history && i < len(je.order); {
		id := je.order[i]
		old := je.records[id]
		if id == jobID || (old.started && !old.done) {
			i++
			continue
		}
		delete(je.records, id)
		je.order = append(je.order[:i], je.order[i+1:]...)
	}
	return rec
}

func subscriberPattern(jobID string) string {
	return fmt.Sprintf("job:%s:*", jobID)
}

package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/mediascribe/component"
	apperrors "github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/job"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/progress"
	"github.com/kbukum/mediascribe/resilience"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/transcription"
	"github.com/kbukum/mediascribe/validation"
)

// JobRunner runs one job to a terminal outcome.
type JobRunner interface {
	RunJobWithID(ctx context.Context, id string, req source.Request, sink progress.Sink) *job.Outcome
}

// ModelCatalog reports the transcription backend and its loaded models.
type ModelCatalog interface {
	Backend() string
	Loaded() []transcription.Entry
}

// JobRequest is the body of POST /v1/jobs. JobID is optional; a caller
// that wants to watch the job's events picks it in advance.
type JobRequest struct {
	Source string `json:"source"`
	Model  string `json:"model,omitempty"`
	JobID  string `json:"job_id,omitempty" validate:"omitempty,uuid"`
}

// JobResponse is the outcome of a job together with its flat result.
type JobResponse struct {
	*job.Outcome
	Result job.Result `json:"result"`
}

// ModelInfo describes one model selector.
type ModelInfo struct {
	Selector source.Selector `json:"selector"`
	Loaded   bool            `json:"loaded"`
	Engine   string          `json:"engine,omitempty"`
	LoadedAt *time.Time      `json:"loaded_at,omitempty"`
	LastUsed *time.Time      `json:"last_used,omitempty"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	Backend string          `json:"backend"`
	Default source.Selector `json:"default"`
	Models  []ModelInfo     `json:"models"`
}

// API exposes the job pipeline over HTTP.
type API struct {
	runner   JobRunner
	models   ModelCatalog
	events   *JobEvents
	bulkhead *resilience.Bulkhead
	log      *logger.Logger
}

// NewAPI creates the job API. At most cfg.MaxConcurrent jobs run at once;
// further requests are rejected rather than queued.
func NewAPI(cfg JobsConfig, runner JobRunner, models ModelCatalog, events *JobEvents) *API {
	a := &API{
		runner: runner,
		models: models,
		events: events,
		log:    logger.Get("api"),
	}
	a.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "jobs",
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.MaxWait,
		OnReject: func(name string) {
			a.log.Warn("job rejected, too many concurrent jobs", logger.Fields("bulkhead", name))
		},
	})
	return a
}

// Register mounts the API routes on r.
func (a *API) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/jobs", a.createJob)
	v1.GET("/jobs/:id/events", a.streamJob)
	v1.GET("/models", a.listModels)
}

// InFlight returns the number of jobs currently running.
func (a *API) InFlight() int { return a.bulkhead.InUse() }

// Health reports job admission. It is degraded while every slot is taken,
// since new jobs are then rejected.
func (a *API) Health(context.Context) component.Health {
	running, max := a.bulkhead.InUse(), a.bulkhead.MaxConcurrent()
	h := component.Health{
		Name:    "jobs",
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d/%d running, %d rejected", running, max, a.bulkhead.Rejected()),
	}
	if running >= max {
		h.Status = component.StatusDegraded
	}
	return h
}

func (a *API) createJob(c *gin.Context) {
	var body JobRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", "request body must be a JSON object"))
		return
	}
	if err := validation.Validate(body); err != nil {
		RespondWithError(c, err)
		return
	}
	id := body.JobID
	if id == "" {
		id = job.NewID()
	}
	if err := a.events.Claim(id); err != nil {
		RespondWithError(c, apperrors.InvalidInput("job_id", "job ID already in use"))
		return
	}

	ctx := c.Request.Context()
	outcome, err := resilience.ExecuteWithResult(ctx, a.bulkhead, func() (*job.Outcome, error) {
		return a.runner.RunJobWithID(ctx, id, source.Request{Source: body.Source, Model: body.Model}, nil), nil
	})
	if err != nil {
		a.events.Abandon(id)
		if stderrors.Is(err, resilience.ErrBulkheadFull) || stderrors.Is(err, resilience.ErrBulkheadTimeout) {
			appErr := apperrors.ServiceUnavailable("transcription").WithDetail("reason", "too many concurrent jobs")
			appErr.Message = "Too many concurrent jobs, try again later"
			RespondWithError(c, appErr)
			return
		}
		RespondWithError(c, apperrors.Canceled("job admission").WithCause(err))
		return
	}

	resp := JobResponse{Outcome: outcome, Result: outcome.Result()}
	if outcome.Succeeded() {
		RespondOK(c, resp)
		return
	}
	appErr := outcome.Err
	if appErr == nil {
		appErr = apperrors.Internal(nil)
	}
	RespondFailure(c, appErr, resp)
}

func (a *API) streamJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondWithError(c, apperrors.InvalidFormat("id", "UUID"))
		return
	}
	a.events.Stream(c.Writer, c.Request, id)
}

func (a *API) listModels(c *gin.Context) {
	loaded := make(map[source.Selector]transcription.Entry)
	for _, e := range a.models.Loaded() {
		loaded[e.Selector] = e
	}

	resp := ModelsResponse{Backend: a.models.Backend(), Default: source.DefaultSelector}
	for _, sel := range source.Selectors() {
		info := ModelInfo{Selector: sel}
		if e, ok := loaded[sel]; ok {
			loadedAt, lastUsed := e.LoadedAt, e.LastUsed
			info.Loaded = true
			info.Engine = e.Engine
			info.LoadedAt = &loadedAt
			info.LastUsed = &lastUsed
		}
		resp.Models = append(resp.Models, info)
	}
	c.JSON(http.StatusOK, DataResponse{Data: resp})
}

package job

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/progress"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/transcription"
	"github.com/kbukum/mediascribe/workspace"
)

// Acquirer produces an audio artifact for a remote source.
// *acquire.Chain implements it.
type Acquirer interface {
	Acquire(ctx context.Context, src source.Classified, ws *workspace.Workspace, sink progress.Sink) (*acquire.Artifact, []acquire.Attempt, error)
}

// EngineCache hands out loaded engines. *transcription.Cache implements it.
type EngineCache interface {
	Get(ctx context.Context, sel source.Selector) (transcription.Engine, error)
}

// Preparer turns an acquired artifact into the file the engine reads.
// *audio.Normalizer implements it.
type Preparer interface {
	Prepare(ctx context.Context, art *acquire.Artifact, ws *workspace.Workspace) (*acquire.Artifact, error)
}

// Listener receives every event of every job as it happens.
type Listener func(jobID string, ev Event)

// Orchestrator runs jobs. It is safe for concurrent use; jobs share only the
// engine cache.
type Orchestrator struct {
	cfg        Config
	workspaces *workspace.Manager
	acquirer   Acquirer
	cache      EngineCache
	invoker    *transcription.Invoker
	preparer   Preparer
	listeners  []Listener
	log        *logger.Logger
	metrics    *observability.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInvoker replaces the default invoker.
func WithInvoker(inv *transcription.Invoker) Option {
	return func(o *Orchestrator) { o.invoker = inv }
}

// WithPreparer runs p on every artifact before transcription.
func WithPreparer(p Preparer) Option {
	return func(o *Orchestrator) { o.preparer = p }
}

// WithListener adds an event listener.
func WithListener(l Listener) Option {
	return func(o *Orchestrator) { o.listeners = append(o.listeners, l) }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics records job counts and durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator.
func New(cfg Config, workspaces *workspace.Manager, acquirer Acquirer, cache EngineCache, opts ...Option) *Orchestrator {
	cfg.ApplyDefaults()
	o := &Orchestrator{
		cfg:        cfg,
		workspaces: workspaces,
		acquirer:   acquirer,
		cache:      cache,
		invoker:    transcription.NewInvoker(transcription.Config{}),
		log:        logger.Get("job"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewID returns a fresh job ID.
func NewID() string { return uuid.NewString() }

// RunJob runs req to completion under a fresh job ID.
func (o *Orchestrator) RunJob(ctx context.Context, req source.Request, sink progress.Sink) *Outcome {
	return o.RunJobWithID(ctx, NewID(), req, sink)
}

// RunJobWithID runs req under id, which callers pick in advance when they
// need to subscribe to the job's events before it starts. The returned
// outcome is terminal and its workspace no longer exists.
func (o *Orchestrator) RunJobWithID(ctx context.Context, id string, req source.Request, sink progress.Sink) *Outcome {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}
	ctx = logger.ContextWithJobID(ctx, id)
	ctx, span := observability.StartSpan(ctx, observability.SpanJob)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrJobID, id)

	r := &run{
		o:       o,
		id:      id,
		state:   StateValidating,
		sink:    progress.OrNop(sink),
		log:     o.log.WithContext(ctx),
		outcome: &Outcome{JobID: id, State: StateValidating, Source: req.Source, StartedAt: time.Now()},
	}
	o.metrics.JobStarted(ctx)
	r.emit(Event{Type: EventState, State: StateValidating})
	r.log.Info("job started", logger.Fields(logger.FieldState, string(StateValidating)))

	defer r.releaseWorkspace()
	r.execute(ctx, req)

	out := r.outcome
	kind := ""
	if out.Err != nil {
		kind = string(out.Err.Code)
		observability.SetSpanAttribute(ctx, observability.AttrErrorKind, kind)
		observability.SetSpanError(ctx, out.Err)
	}
	o.metrics.JobFinished(ctx, string(out.State), kind, out.Duration)
	return out
}

// run is the state of one job. It is used by a single goroutine.
type run struct {
	o       *Orchestrator
	id      string
	state   State
	seq     int
	sink    progress.Sink
	log     *logger.Logger
	ws      *workspace.Workspace
	outcome *Outcome

	lastStage    string
	lastFraction float64
}

func (r *run) execute(ctx context.Context, req source.Request) {
	src, sel, err := validate(req)
	if err != nil {
		r.fail(err)
		return
	}
	r.outcome.Model = string(sel)
	observability.SetSpanAttribute(ctx, observability.AttrSourceKind, src.Kind.String())
	observability.SetSpanAttribute(ctx, observability.AttrFamily, src.Label())
	observability.SetSpanAttribute(ctx, observability.AttrSelector, string(sel))

	var local *acquire.Artifact
	if src.Kind == source.KindLocalFile {
		if local, err = localArtifact(src); err != nil {
			r.fail(err)
			return
		}
	}
	if err := errors.Interrupted(ctx, "job"); err != nil {
		r.fail(err)
		return
	}

	ws, err := r.o.workspaces.Create(r.id)
	if err != nil {
		r.fail(err)
		return
	}
	r.ws = ws

	art := local
	if art == nil {
		if art, err = r.acquire(ctx, src); err != nil {
			r.fail(err)
			return
		}
	}

	transcript, err := r.transcribe(ctx, art, sel)
	if err != nil {
		r.fail(err)
		return
	}
	r.outcome.Transcript = transcript
	r.finish(StateCompleted, nil)
}

// validate checks the request and classifies its source. It does no I/O.
func validate(req source.Request) (source.Classified, source.Selector, error) {
	if err := req.Validate(); err != nil {
		return source.Classified{}, "", err
	}
	sel, err := req.Selector()
	if err != nil {
		return source.Classified{}, "", err
	}
	src, err := source.Classify(req.Source)
	if err != nil {
		return source.Classified{}, "", err
	}
	if err := src.CheckAcquirable(); err != nil {
		return source.Classified{}, "", err
	}
	return src, sel, nil
}

func localArtifact(src source.Classified) (*acquire.Artifact, error) {
	info, err := os.Stat(src.Path)
	switch {
	case err != nil:
		return nil, errors.InvalidInput("source", "local file "+src.Path+" does not exist")
	case info.IsDir():
		return nil, errors.InvalidInput("source", src.Path+" is a directory")
	case info.Size() == 0:
		return nil, errors.InvalidInput("source", "local file "+src.Path+" is empty")
	}
	return &acquire.Artifact{Path: src.Path, Provenance: "local", Size: info.Size()}, nil
}

func (r *run) acquire(ctx context.Context, src source.Classified) (*acquire.Artifact, error) {
	r.transition(StateAcquiring, nil)
	ctx, span := observability.StartSpan(ctx, observability.SpanAcquire)
	defer span.End()

	art, attempts, err := r.o.acquirer.Acquire(ctx, src, r.ws, progress.Func(r.report))
	r.outcome.Attempts = attempts
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrAdapter, art.Provenance)
	return art, nil
}

func (r *run) transcribe(ctx context.Context, art *acquire.Artifact, sel source.Selector) (*transcription.Transcript, error) {
	r.transition(StateTranscribing, nil)
	r.outcome.Provenance = art.Provenance
	ctx, span := observability.StartSpan(ctx, observability.SpanTranscribe)
	defer span.End()

	sink := progress.Monotonic(progress.Func(r.report))
	sink.Report(0, "loading model")
	engine, err := r.o.cache.Get(ctx, sel)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	if r.o.preparer != nil {
		sink.Report(0.05, "preparing audio")
		if art, err = r.o.preparer.Prepare(ctx, art, r.ws); err != nil {
			observability.SetSpanError(ctx, err)
			return nil, err
		}
	}

	sink.Report(0.1, "transcribing")
	t, err := r.o.invoker.Transcribe(ctx, art.Path, engine)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	sink.Report(1, "transcribing")
	return t, nil
}

// report forwards a progress report to the caller and records it as an
// event when the stage changes or the fraction moved by at least one step.
func (r *run) report(fraction float64, stage string) {
	fraction = progress.Clamp(fraction)
	r.sink.Report(fraction, stage)
	if stage == r.lastStage && fraction < 1 && fraction-r.lastFraction < r.o.cfg.ProgressStep {
		return
	}
	if stage == r.lastStage && fraction == r.lastFraction {
		return
	}
	r.lastStage, r.lastFraction = stage, fraction
	r.emit(Event{Type: EventProgress, State: r.state, Fraction: fraction, Stage: stage})
}

func (r *run) transition(to State, failure *errors.ErrorBody) bool {
	if !CanTransition(r.state, to) {
		r.log.Error("illegal state transition", logger.Fields("from", string(r.state), "to", string(to)))
		return false
	}
	r.state = to
	r.outcome.State = to
	r.lastStage, r.lastFraction = "", 0
	r.emit(Event{Type: EventState, State: to, Error: failure})
	r.log.Debug("job state changed", logger.Fields(logger.FieldState, string(to)))
	return true
}

func (r *run) fail(err error) {
	r.finish(StateFailed, errors.From(err))
}

// finish releases the workspace, then records the terminal state.
func (r *run) finish(state State, appErr *errors.AppError) {
	r.releaseWorkspace()
	r.outcome.Err = appErr
	r.outcome.Duration = time.Since(r.outcome.StartedAt)

	var failure *errors.ErrorBody
	if appErr != nil {
		failure = appErr.Body()
	}
	if !r.transition(state, failure) {
		r.outcome.State = state
	}

	fields := logger.Fields(logger.FieldState, string(state), logger.FieldDuration, r.outcome.Duration.Milliseconds())
	if appErr != nil {
		fields["kind"] = string(appErr.Code)
		r.log.Warn("job failed", logger.MergeWithError(fields, appErr))
		return
	}
	r.log.Info("job completed", fields)
}

func (r *run) releaseWorkspace() {
	if r.ws != nil {
		r.ws.Release()
	}
}

func (r *run) emit(ev Event) {
	r.seq++
	ev.Seq = r.seq
	ev.Time = time.Now()
	r.outcome.Events = append(r.outcome.Events, ev)
	for _, l := range r.o.listeners {
		l(r.id, ev)
	}
}

// Package orchestrator drives the job lifecycle: create, transpile,
// dispatch to a pilot, persist results, advance state, re-run, cancel.
// Grounded on job_manager_service.py's run_job/create_and_run_job/
// re_run_job_by_id/cancel_job_by_id and services/scheduler/main.go's
// processNextJob worker loop.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/perclft/qpilot/internal/config"
	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/metrics"
	"github.com/perclft/qpilot/internal/obslog"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/qerr"
	"github.com/perclft/qpilot/internal/queue"
	"github.com/perclft/qpilot/internal/store"
	"github.com/perclft/qpilot/internal/transpiler"
)

// Orchestrator wires the store, queue, transpiler graph and pilot
// registry together. One instance serves the whole process.
type Orchestrator struct {
	store  store.Store
	q      queue.Queue
	graph  *transpiler.Graph
	pilots map[string]pilot.Pilot
	m      *metrics.Registry
	log    *obslog.Logger

	// Async mirrors the ASYNCHRONOUS module-level flag in
	// job_manager_service.py: when false, CreateAndRun executes inline
	// and Cancel of a visible, non-terminal job fails with
	// NotImplementedInSyncMode (spec.md
	// §4.5 "Cancellation in the synchronous mode fails with
	// NotImplementedInSyncMode").
	Async bool

	// ExperimentalFeatures mirrors ENABLE_EXPERIMENTAL_FEATURES (spec.md
	// §4.6/§6): FILE_UPLOAD/FILE_RUN jobs are rejected outright while it
	// is off.
	ExperimentalFeatures bool
}

// New builds an Orchestrator. pilots is keyed by pilot.ProviderName().
func New(st store.Store, q queue.Queue, graph *transpiler.Graph, pilots map[string]pilot.Pilot, m *metrics.Registry, log *obslog.Logger, async bool, experimentalFeatures bool) *Orchestrator {
	return &Orchestrator{store: st, q: q, graph: graph, pilots: pilots, m: m, log: log, Async: async, ExperimentalFeatures: experimentalFeatures}
}

func (o *Orchestrator) pilotFor(provider string) (pilot.Pilot, error) {
	p, ok := o.pilots[provider]
	if !ok {
		return nil, qerr.New(qerr.Validation, fmt.Sprintf("no pilot registered for provider %q", provider))
	}
	return p, nil
}

// CreateJobRequest is the input to CreateAndRun: a deployment snapshot
// already resolved by the HTTP layer (it owns looking up the live
// Deployment row and copying its programs onto the job, per spec.md §3's
// "job retains its own frozen program data").
type CreateJobRequest struct {
	Owner             domain.UserID
	Device            domain.Device
	DeploymentID      string
	Deployment        domain.Deployment
	Shots             int
	Type              domain.JobType
	Name              string
	Token             string
	FileUploadInputs  map[string]any
	FileUploadOptions map[string]any
}

// CreateAndRun persists a new READY job, then either enqueues it
// (asynchronous mode) or runs it inline and returns once it reaches a
// terminal or staged state (synchronous mode) — the same fork
// create_and_run_job makes between run_job.delay(...) and run_job(...).
func (o *Orchestrator) CreateAndRun(ctx context.Context, req CreateJobRequest) (*domain.Job, error) {
	if !o.ExperimentalFeatures && (req.Type == domain.JobFileUpload || req.Type == domain.JobFileRun) {
		return nil, qerr.New(qerr.Validation, fmt.Sprintf("job type %q requires ENABLE_EXPERIMENTAL_FEATURES", req.Type))
	}

	job := &domain.Job{
		Owner:              req.Owner,
		Device:             req.Device,
		DeploymentID:       req.DeploymentID,
		Deployment:         req.Deployment,
		Shots:              req.Shots,
		Type:               req.Type,
		State:              domain.JobReady,
		Name:               req.Name,
		CreatedAt:          time.Now(),
		Token:              req.Token,
		FileUploadInputs:   req.FileUploadInputs,
		FileUploadOptions:  req.FileUploadOptions,
	}
	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	if o.m != nil {
		o.m.JobsSubmitted.WithLabelValues(req.Device.Provider, string(req.Type)).Inc()
	}

	if o.Async {
		if err := o.q.Enqueue(ctx, job, queue.PriorityNormal); err != nil {
			return nil, err
		}
		return job, nil
	}

	o.RunJob(ctx, job)
	return job, nil
}

// Handler adapts RunJob to queue.Handler for wiring into Queue.Start.
func (o *Orchestrator) Handler() queue.Handler {
	return func(ctx context.Context, job *domain.Job) {
		o.RunJob(ctx, job)
	}
}

// RunJob drives job from READY through transpilation and pilot
// execution to a terminal or staged state, persisting the job and its
// results as it goes. It never returns an error to its caller — every
// failure is recorded on the job itself, matching run_job's contract of
// always reaching update_finished_job exactly once.
func (o *Orchestrator) RunJob(ctx context.Context, job *domain.Job) {
	log := o.log
	if log != nil {
		log = log.WithJob(job.ID)
	}

	job.State = domain.JobRunning
	now := time.Now()
	job.StartedAt = &now
	if err := o.store.SaveJob(ctx, job); err != nil {
		if log != nil {
			log.Error("failed to mark job running", err)
		}
		return
	}

	p, err := o.pilotFor(job.Device.Provider)
	if err != nil {
		o.finishWithError(ctx, job, err)
		return
	}

	circuits, errResults := o.transpileAll(job, p)
	if len(errResults) > 0 {
		if err := o.store.SaveResults(ctx, job.ID, errResults); err != nil && log != nil {
			log.Error("failed to persist transpile error results", err)
		}
	}

	if len(circuits) == 0 {
		// Every program failed to transpile (invariant: provider is
		// never called with an empty circuit batch).
		o.setState(ctx, job, domain.JobError)
		return
	}

	start := time.Now()
	execCtx, cancelExec := context.WithTimeout(ctx, config.PilotRequestTimeout)
	state, err := pilot.Execute(execCtx, p, job, circuits, job.Token, resultSink{o.store})
	cancelExec()
	if o.m != nil {
		o.m.PilotCallSecs.WithLabelValues(job.Device.Provider).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		// Provider-call errors are recovered at job granularity (spec.md
		// §4.5 propagation policy), unlike the per-program transpile
		// failures above.
		o.finishWithError(ctx, job, err)
		return
	}

	o.setState(ctx, job, state)
}

// transpileAll plans and compiles every program in job.Deployment
// against p's supported formats, recovering failures per program
// (spec.md §4.5 step 4, §7 propagation policy).
func (o *Orchestrator) transpileAll(job *domain.Job, p pilot.Pilot) ([]pilot.PreparedCircuit, []domain.Result) {
	circuits := make([]pilot.PreparedCircuit, 0, len(job.Deployment.Programs))
	var errResults []domain.Result

	for _, program := range job.Deployment.Programs {
		plan, err := o.graph.Plan(program.SourceFormat, p.SupportedFormats())
		if err != nil {
			errResults = append(errResults, transpileErrorResult(program, err))
			continue
		}
		compiled := transpiler.Compile(plan)
		out, err := compiled(program.CircuitSource)
		if err != nil {
			errResults = append(errResults, transpileErrorResult(program, err))
			continue
		}
		circuits = append(circuits, pilot.PreparedCircuit{Program: program, Circuit: out})

		if o.m != nil {
			if c, ok := out.(*domain.Circuit); ok {
				o.m.CircuitQubits.Observe(float64(c.NumQubits))
			}
		}
	}
	return circuits, errResults
}

func transpileErrorResult(program domain.QuantumProgram, err error) domain.Result {
	return domain.Result{
		ProgramID: program.ID,
		Type:      domain.ResultError,
		Data:      map[string]any{"message": err.Error()},
		Meta:      map[string]any{"kind": qerr.KindOf(err).String()},
	}
}

func (o *Orchestrator) finishWithError(ctx context.Context, job *domain.Job, err error) {
	res := domain.Result{
		Type:      domain.ResultError,
		Data:      map[string]any{"message": err.Error()},
		Meta:      map[string]any{"kind": qerr.KindOf(err).String()},
	}
	if saveErr := o.store.SaveResults(ctx, job.ID, []domain.Result{res}); saveErr != nil && o.log != nil {
		o.log.WithJob(job.ID).Error("failed to persist job error result", saveErr)
	}
	o.setState(ctx, job, domain.JobError)
}

func (o *Orchestrator) setState(ctx context.Context, job *domain.Job, state domain.JobState) {
	job.State = state
	if state.Terminal() {
		now := time.Now()
		job.FinishedAt = &now
	}
	if err := o.store.SaveJob(ctx, job); err != nil && o.log != nil {
		o.log.WithJob(job.ID).Error("failed to persist final job state", err)
		return
	}
	if o.m == nil {
		return
	}
	switch state {
	case domain.JobFinished:
		o.m.JobsFinished.WithLabelValues(job.Device.Provider, string(job.Type)).Inc()
	case domain.JobError:
		o.m.JobsErrored.WithLabelValues(job.Device.Provider, string(job.Type)).Inc()
	case domain.JobCanceled:
		o.m.JobsCanceled.WithLabelValues(job.Device.Provider).Inc()
	}
}

// ReRunByID loads job, snapshots it as a brand new job with a fresh id,
// and runs it — re_run_job_by_id's "save it as new job and run it with
// the new id".
func (o *Orchestrator) ReRunByID(ctx context.Context, jobID string, token string) (*domain.Job, error) {
	src, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return o.CreateAndRun(ctx, CreateJobRequest{
		Owner:              src.Owner,
		Device:             src.Device,
		DeploymentID:       src.DeploymentID,
		Deployment:         src.Deployment,
		Shots:              src.Shots,
		Type:               src.Type,
		Name:               src.Name,
		Token:              token,
		FileUploadInputs:   src.FileUploadInputs,
		FileUploadOptions:  src.FileUploadOptions,
	})
}

// Cancel implements spec.md §4.5's cancellation rules: READY-and-queued
// revokes the queue entry; RUNNING delegates to the pilot; terminal
// states and synchronous-mode jobs refuse.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string, caller domain.UserID, token string) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.VisibleTo(caller) {
		return qerr.New(qerr.Forbidden, "job belongs to another owner")
	}
	if job.State.Terminal() {
		return qerr.New(qerr.InvalidStateTransition, "job is already in a terminal state")
	}
	if !o.Async {
		return qerr.New(qerr.NotImplementedInSyncMode, "cancellation requires asynchronous execution")
	}

	switch job.State {
	case domain.JobReady:
		found, stillQueued, err := o.q.Cancel(ctx, jobID)
		if err != nil {
			return err
		}
		if !found || !stillQueued {
			return qerr.New(qerr.InvalidStateTransition, "job is no longer queued")
		}
		o.setState(ctx, job, domain.JobCanceled)
		return nil

	case domain.JobRunning:
		p, err := o.pilotFor(job.Device.Provider)
		if err != nil {
			return err
		}
		if err := p.CancelProviderSpecific(ctx, job, token); err != nil {
			return err
		}
		_, _, _ = o.q.Cancel(ctx, jobID)
		o.setState(ctx, job, domain.JobCanceled)
		return nil

	default:
		return qerr.New(qerr.InvalidStateTransition, "job is not cancellable from its current state")
	}
}

// DeleteByID removes a job (and its results) after an ownership check.
func (o *Orchestrator) DeleteByID(ctx context.Context, jobID string, caller domain.UserID) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.VisibleTo(caller) {
		return qerr.New(qerr.Forbidden, "job belongs to another owner")
	}
	return o.store.DeleteJob(ctx, jobID)
}

// resultSink adapts store.Store to pilot.ResultSink, the narrow
// interface pilots are handed instead of the full store.
type resultSink struct {
	st store.Store
}

func (r resultSink) SaveResults(ctx context.Context, jobID string, results []domain.Result) error {
	return r.st.SaveResults(ctx, jobID, results)
}

package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/orchestrator"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/qerr"
	"github.com/perclft/qpilot/internal/queue"
	"github.com/perclft/qpilot/internal/store"
	"github.com/perclft/qpilot/internal/transpiler"
)

const testProvider = "TestProvider"

// fakePilot is a minimal pilot.Pilot double: Run always succeeds unless
// failRun is set, in which case it reports a provider-call failure.
type fakePilot struct {
	failRun      bool
	canceled     bool
	cancelErr    error
	lastCircuits []pilot.PreparedCircuit
}

func (f *fakePilot) ProviderName() string { return testProvider }
func (f *fakePilot) SupportedFormats() []domain.Format {
	return []domain.Format{domain.FormatQASM3}
}
func (f *fakePilot) Run(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	f.lastCircuits = circuits
	if f.failRun {
		return domain.JobError, qerr.New(qerr.ProviderUnavailable, "provider is down")
	}
	results := make([]domain.Result, 0, len(circuits))
	for _, c := range circuits {
		results = append(results, domain.Result{
			ProgramID: c.Program.ID,
			Type:      domain.ResultCounts,
			Data:      map[string]any{"0x0": 1000},
		})
	}
	if err := sink.SaveResults(ctx, job.ID, results); err != nil {
		return domain.JobError, err
	}
	return domain.JobFinished, nil
}
func (f *fakePilot) ExecuteProviderSpecific(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	return domain.JobError, qerr.New(qerr.UnsupportedJobType, "not supported")
}
func (f *fakePilot) CancelProviderSpecific(ctx context.Context, job *domain.Job, token string) error {
	f.canceled = true
	return f.cancelErr
}
func (f *fakePilot) DefaultProvider() domain.Provider { return domain.Provider{Name: testProvider} }
func (f *fakePilot) DefaultJob(device domain.Device) (*domain.Job, error) {
	return &domain.Job{Device: device}, nil
}
func (f *fakePilot) SaveDevicesFromProvider(ctx context.Context, token string, devices pilot.DeviceStore) error {
	return nil
}
func (f *fakePilot) IsDeviceAvailable(ctx context.Context, device domain.Device, token string) (bool, error) {
	return true, nil
}
func (f *fakePilot) DeviceData(ctx context.Context, device domain.Device, token string) (map[string]any, error) {
	return nil, nil
}

const bellPairQASM3 = `OPENQASM 3;
qubit[2] q;
bit[2] c;
h q[0];
cx q[0], q[1];
c = measure q;
`

func newTestOrchestrator(p pilot.Pilot, async bool) (*orchestrator.Orchestrator, store.Store, queue.Queue) {
	st := store.NewMemory()
	q := queue.NewInProcess(2)
	graph := transpiler.NewStandardGraph()
	o := orchestrator.New(st, q, graph, map[string]pilot.Pilot{testProvider: p}, nil, nil, async, true)
	return o, st, q
}

func testRequest() orchestrator.CreateJobRequest {
	return orchestrator.CreateJobRequest{
		Owner:  "alice",
		Device: domain.Device{Provider: testProvider, Name: "sim", NumQubits: 4, IsSimulator: true},
		Deployment: domain.Deployment{
			Name: "bell-pair",
			Programs: []domain.QuantumProgram{
				{ID: "p1", SourceFormat: domain.FormatQASM3, CircuitSource: bellPairQASM3},
			},
		},
		Shots: 1000,
		Type:  domain.JobRunner,
		Name:  "test-job",
	}
}

func TestCreateAndRunSyncFinishes(t *testing.T) {
	p := &fakePilot{}
	o, st, _ := newTestOrchestrator(p, false)

	job, err := o.CreateAndRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("CreateAndRun: %v", err)
	}
	if job.State != domain.JobFinished {
		t.Fatalf("job.State = %v, want FINISHED", job.State)
	}
	if job.StartedAt == nil || job.FinishedAt == nil {
		t.Error("StartedAt/FinishedAt were not set")
	}

	results, err := st.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 || results[0].Type != domain.ResultCounts {
		t.Errorf("results = %v, want one COUNTS result", results)
	}
}

func TestRunJobProviderFailureIsJobGranularity(t *testing.T) {
	p := &fakePilot{failRun: true}
	o, st, _ := newTestOrchestrator(p, false)

	job, err := o.CreateAndRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("CreateAndRun: %v", err)
	}
	if job.State != domain.JobError {
		t.Fatalf("job.State = %v, want ERROR", job.State)
	}

	results, err := st.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 || results[0].Type != domain.ResultError {
		t.Errorf("results = %v, want one ERROR result", results)
	}
}

func TestRunJobTranspileFailurePerProgram(t *testing.T) {
	p := &fakePilot{}
	o, st, _ := newTestOrchestrator(p, false)

	req := testRequest()
	req.Deployment.Programs = []domain.QuantumProgram{
		{ID: "good", SourceFormat: domain.FormatQASM3, CircuitSource: bellPairQASM3},
		{ID: "bad", SourceFormat: domain.FormatQASM2, CircuitSource: "not a valid circuit at all"},
	}

	job, err := o.CreateAndRun(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateAndRun: %v", err)
	}

	results, err := st.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}

	var sawError, sawCounts bool
	for _, r := range results {
		switch r.Type {
		case domain.ResultError:
			sawError = true
			if r.ProgramID != "bad" {
				t.Errorf("error result ProgramID = %q, want bad", r.ProgramID)
			}
		case domain.ResultCounts:
			sawCounts = true
		}
	}
	if !sawError || !sawCounts {
		t.Errorf("results = %v, want one ERROR (bad) and one COUNTS (good)", results)
	}

	// Partial success: at least one program succeeded, so the job
	// finishes rather than erroring.
	if job.State != domain.JobFinished {
		t.Errorf("job.State = %v, want FINISHED (partial success)", job.State)
	}
}

func TestCancelSyncModeRejected(t *testing.T) {
	p := &fakePilot{}
	o, st, _ := newTestOrchestrator(p, false)

	job := &domain.Job{Owner: "alice", State: domain.JobReady, Device: domain.Device{Provider: testProvider}}
	if err := st.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	err := o.Cancel(context.Background(), job.ID, "alice", "")
	if qerr.KindOf(err) != qerr.NotImplementedInSyncMode {
		t.Errorf("Cancel kind = %v, want NotImplementedInSyncMode", qerr.KindOf(err))
	}
}

func TestCancelQueuedJobAsync(t *testing.T) {
	p := &fakePilot{}
	o, st, q := newTestOrchestrator(p, true)
	_ = q

	job := &domain.Job{Owner: "alice", State: domain.JobReady, Device: domain.Device{Provider: testProvider}}
	if err := st.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if err := q.Enqueue(context.Background(), job, queue.PriorityNormal); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := o.Cancel(context.Background(), job.ID, "alice", ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, err := st.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != domain.JobCanceled {
		t.Errorf("job.State = %v, want CANCELED", got.State)
	}
}

func TestCancelForbiddenForOtherOwner(t *testing.T) {
	p := &fakePilot{}
	o, st, _ := newTestOrchestrator(p, true)

	job := &domain.Job{Owner: "alice", State: domain.JobReady, Device: domain.Device{Provider: testProvider}}
	if err := st.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	err := o.Cancel(context.Background(), job.ID, "mallory", "")
	if qerr.KindOf(err) != qerr.Forbidden {
		t.Errorf("Cancel kind = %v, want Forbidden", qerr.KindOf(err))
	}
}

func TestCancelTerminalJobRejected(t *testing.T) {
	p := &fakePilot{}
	o, st, _ := newTestOrchestrator(p, true)

	finishedAt := time.Now()
	job := &domain.Job{Owner: "alice", State: domain.JobFinished, FinishedAt: &finishedAt, Device: domain.Device{Provider: testProvider}}
	if err := st.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	err := o.Cancel(context.Background(), job.ID, "alice", "")
	if qerr.KindOf(err) != qerr.InvalidStateTransition {
		t.Errorf("Cancel kind = %v, want InvalidStateTransition", qerr.KindOf(err))
	}
}

func TestReRunByIDCreatesNewJob(t *testing.T) {
	p := &fakePilot{}
	o, st, _ := newTestOrchestrator(p, false)

	original, err := o.CreateAndRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("CreateAndRun: %v", err)
	}

	rerun, err := o.ReRunByID(context.Background(), original.ID, "")
	if err != nil {
		t.Fatalf("ReRunByID: %v", err)
	}
	if rerun.ID == original.ID {
		t.Error("ReRunByID reused the original job id")
	}
	if rerun.State != domain.JobFinished {
		t.Errorf("rerun.State = %v, want FINISHED", rerun.State)
	}

	jobs, err := st.ListJobs(context.Background(), store.JobFilter{Owner: "alice"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("ListJobs returned %d jobs, want 2", len(jobs))
	}
}

func TestCreateAndRunRejectsFileUploadWithoutExperimentalFlag(t *testing.T) {
	st := store.NewMemory()
	q := queue.NewInProcess(2)
	graph := transpiler.NewStandardGraph()
	p := &fakePilot{}
	o := orchestrator.New(st, q, graph, map[string]pilot.Pilot{testProvider: p}, nil, nil, false, false)

	req := testRequest()
	req.Type = domain.JobFileUpload

	_, err := o.CreateAndRun(context.Background(), req)
	if qerr.KindOf(err) != qerr.Validation {
		t.Fatalf("CreateAndRun error = %v, want Validation", err)
	}
}

func TestCreateAndRunAllowsFileUploadWithExperimentalFlag(t *testing.T) {
	st := store.NewMemory()
	q := queue.NewInProcess(2)
	graph := transpiler.NewStandardGraph()
	p := &fakePilot{}
	o := orchestrator.New(st, q, graph, map[string]pilot.Pilot{testProvider: p}, nil, nil, false, true)

	req := testRequest()
	req.Type = domain.JobFileUpload

	job, err := o.CreateAndRun(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateAndRun: %v", err)
	}
	if job.Type != domain.JobFileUpload {
		t.Errorf("job.Type = %v, want FILE_UPLOAD", job.Type)
	}
}

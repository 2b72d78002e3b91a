package store_test

import (
	"context"
	"testing"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
	"github.com/perclft/qpilot/internal/store"
)

func TestMemoryJobRoundTrip(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	job := &domain.Job{Owner: "alice", Name: "bell-pair", State: domain.JobReady}
	if err := m.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("SaveJob did not assign an id")
	}

	got, err := m.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Name != "bell-pair" {
		t.Errorf("Name = %q, want bell-pair", got.Name)
	}

	if err := m.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := m.GetJob(ctx, job.ID); qerr.KindOf(err) != qerr.NotFound {
		t.Errorf("GetJob after delete: kind = %v, want NotFound", qerr.KindOf(err))
	}
}

func TestMemoryListJobsFiltersByOwner(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	if err := m.SaveJob(ctx, &domain.Job{Owner: "alice", State: domain.JobReady}); err != nil {
		t.Fatalf("SaveJob alice: %v", err)
	}
	if err := m.SaveJob(ctx, &domain.Job{Owner: "bob", State: domain.JobReady}); err != nil {
		t.Fatalf("SaveJob bob: %v", err)
	}

	jobs, err := m.ListJobs(ctx, store.JobFilter{Owner: "alice"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Owner != "alice" {
		t.Errorf("ListJobs(alice) = %v, want exactly alice's job", jobs)
	}
}

func TestMemorySaveAndListResults(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	job := &domain.Job{State: domain.JobRunning}
	if err := m.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	results := []domain.Result{
		{Type: domain.ResultCounts, Data: map[string]any{"0x0": 512, "0x1": 488}},
	}
	if err := m.SaveResults(ctx, job.ID, results); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}

	got, err := m.ListResults(ctx, job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(got) != 1 || got[0].Type != domain.ResultCounts {
		t.Errorf("ListResults = %v, want one COUNTS result", got)
	}
	if got[0].ID == "" {
		t.Error("SaveResults did not assign an id")
	}
}

func TestMemoryForkDeploymentCopiesPrograms(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	src := &domain.Deployment{
		Name:  "original",
		Owner: "alice",
		Programs: []domain.QuantumProgram{
			{SourceFormat: domain.FormatQASM3, CircuitSource: "OPENQASM 3;"},
		},
	}
	if err := m.SaveDeployment(ctx, src); err != nil {
		t.Fatalf("SaveDeployment: %v", err)
	}

	fork, err := m.ForkDeployment(ctx, src.ID, "bob")
	if err != nil {
		t.Fatalf("ForkDeployment: %v", err)
	}
	if fork.ID == src.ID {
		t.Error("fork shares the source deployment id")
	}
	if fork.Owner != "bob" {
		t.Errorf("fork.Owner = %q, want bob", fork.Owner)
	}
	if len(fork.Programs) != 1 || fork.Programs[0].ID == src.Programs[0].ID {
		t.Error("fork did not get its own copy of the programs")
	}
}

func TestMemoryDeviceUpsertIsIdempotent(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	d := domain.Device{Provider: "QubitEngine", Name: "qubit-engine-sim", NumQubits: 24, IsSimulator: true, IsLocal: true}
	if err := m.UpsertDevice(ctx, d); err != nil {
		t.Fatalf("UpsertDevice: %v", err)
	}
	d.NumQubits = 28
	if err := m.UpsertDevice(ctx, d); err != nil {
		t.Fatalf("UpsertDevice (update): %v", err)
	}

	devices, err := m.ListDevicesByProvider(ctx, "QubitEngine")
	if err != nil {
		t.Fatalf("ListDevicesByProvider: %v", err)
	}
	if len(devices) != 1 || devices[0].NumQubits != 28 {
		t.Errorf("devices = %v, want exactly one device with NumQubits=28", devices)
	}
}

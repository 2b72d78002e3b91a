// Package pilot defines the uniform driver contract every backend provider
// implements (spec.md §4.3), grounded on
// backend/backends/backends.go's QuantumBackend interface merged with
// qunicorn_core/core/pilotmanager/base_pilot.py's wider Pilot base class
// (device reconciliation, seed data, provider-specific job types).
package pilot

import (
	"context"

	"github.com/perclft/qpilot/internal/domain"
)

// PreparedCircuit pairs a program with the value its transpilation pipeline
// produced — a string for text-format targets, a *domain.Circuit for the
// CIRCUIT_IR pivot — exactly what the orchestrator hands a pilot per
// spec.md §4.5 step 4.
type PreparedCircuit struct {
	Program domain.QuantumProgram
	Circuit any
}

// DeviceStore is the narrow slice of the persistence boundary a pilot needs
// to reconcile devices (spec.md §4.3 save_devices_from_provider). Defined
// here, not imported from internal/store, so pilot has no dependency on
// the storage implementation — only on the shape it needs.
type DeviceStore interface {
	ListDevicesByProvider(ctx context.Context, provider string) ([]domain.Device, error)
	UpsertDevice(ctx context.Context, d domain.Device) error
}

// Pilot is the contract spec.md §4.3 names. Implementations live one per
// provider under internal/pilot/<provider>.
type Pilot interface {
	// ProviderName is this pilot's identity, unique among registered pilots.
	ProviderName() string

	// SupportedFormats is the non-empty ordered list of format tags this
	// pilot accepts for direct execution (transpiler.Graph.Plan's
	// candidate list).
	SupportedFormats() []domain.Format

	// Run executes prepared circuits for a RUNNER job, persists results via
	// the caller-supplied sink, and returns the terminal state.
	Run(ctx context.Context, job *domain.Job, circuits []PreparedCircuit, token string, sink ResultSink) (domain.JobState, error)

	// ExecuteProviderSpecific handles SAMPLER, ESTIMATOR, FILE_UPLOAD,
	// FILE_RUN. A pilot that does not support job.Type fails with
	// qerr.UnsupportedJobType.
	ExecuteProviderSpecific(ctx context.Context, job *domain.Job, circuits []PreparedCircuit, token string, sink ResultSink) (domain.JobState, error)

	// CancelProviderSpecific cancels a RUNNING job at the backend. A pilot
	// that cannot cancel in-flight work fails with qerr.CancelUnsupported.
	CancelProviderSpecific(ctx context.Context, job *domain.Job, token string) error

	// DefaultProvider returns the canonical Provider row to insert on first
	// start.
	DefaultProvider() domain.Provider

	// DefaultJob returns a seed Job + Deployment used for self-test
	// fixtures, executed synchronously against device.
	DefaultJob(device domain.Device) (*domain.Job, error)

	// SaveDevicesFromProvider upserts the pilot's device directory into the
	// device table by (provider, name); unseen local devices are preserved
	// untouched (spec.md §8 S6). The shipped pilots upsert their embedded
	// seed directory; none of them queries the provider for its device list.
	SaveDevicesFromProvider(ctx context.Context, token string, devices DeviceStore) error

	// IsDeviceAvailable probes the provider for device availability.
	IsDeviceAvailable(ctx context.Context, device domain.Device, token string) (bool, error)

	// DeviceData returns a JSON-serializable configuration/calibration blob.
	DeviceData(ctx context.Context, device domain.Device, token string) (map[string]any, error)
}

// Execute is the non-RUNNER-aware dispatch helper spec.md §4.3 describes
// informally ("execute") atop Run/ExecuteProviderSpecific: RUNNER jobs go
// to Run, everything else to ExecuteProviderSpecific. Orchestrator code
// calls this rather than branching on job.Type itself.
func Execute(ctx context.Context, p Pilot, job *domain.Job, circuits []PreparedCircuit, token string, sink ResultSink) (domain.JobState, error) {
	if job.Type == domain.JobRunner {
		return p.Run(ctx, job, circuits, token, sink)
	}
	return p.ExecuteProviderSpecific(ctx, job, circuits, token, sink)
}

// ResultSink is how a pilot commits result rows. Implementations persist a
// batch of results for one program in a single transaction, then the
// orchestrator advances job state (spec.md §4.3 "Pilots must ... commit a
// batch of results in a single persistence transaction per program, then
// advance the job state").
type ResultSink interface {
	SaveResults(ctx context.Context, jobID string, results []domain.Result) error
}

package local

import (
	"context"
	"embed"
	"math/rand"
	"time"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/pilot/remote"
	"github.com/perclft/qpilot/internal/qerr"
	"github.com/perclft/qpilot/internal/result"
	"github.com/perclft/qpilot/internal/transpiler"
)

//go:embed qubitengine_standard_devices.json
var seedFS embed.FS

const providerName = "QubitEngine"

// bellPairQASM3 seeds Pilot.DefaultJob, grounded on
// base_pilot.py's create_default_job_with_circuit_and_device, which always
// exercises the pilot's first supported format end to end.
const bellPairQASM3 = `OPENQASM 3.0;
include "stdgates.inc";
qubit[2] q;
bit[2] c;

h q[0];
cx q[0], q[1];

c = measure q;
`

// Pilot is the in-process statevector simulator pilot. It never contacts a
// network provider; every operation is local and synchronous.
type Pilot struct{}

// New constructs the local simulator pilot.
func New() *Pilot { return &Pilot{} }

var _ pilot.Pilot = (*Pilot)(nil)

func (p *Pilot) ProviderName() string { return providerName }

func (p *Pilot) SupportedFormats() []domain.Format {
	return []domain.Format{transpiler.FormatCircuitIR, domain.FormatQASM3, domain.FormatQASM2}
}

func (p *Pilot) Run(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, pc := range circuits {
		select {
		case <-ctx.Done():
			return domain.JobCanceled, ctx.Err()
		default:
		}

		circuit, err := asCircuit(pc.Circuit)
		if err != nil {
			return domain.JobError, err
		}
		rawCounts, err := Simulate(circuit, job.Shots, rng)
		if err != nil {
			return domain.JobError, err
		}
		hexCounts, err := result.BinaryCountsToHex(rawCounts, false)
		if err != nil {
			return domain.JobError, err
		}
		res := domain.Result{
			ProgramID: pc.Program.ID,
			Type:      domain.ResultCounts,
			Data:      toAnyMap(hexCounts),
			Meta: map[string]any{
				"format":    "hex",
				"shots":     job.Shots,
				"registers": circuit.Registers,
			},
		}
		probs := result.CountsToProbabilities(hexCounts)
		probRes := domain.Result{
			ProgramID: pc.Program.ID,
			Type:      domain.ResultProbabilities,
			Data:      toAnyFloatMap(probs),
			Meta:      res.Meta,
		}
		if err := sink.SaveResults(ctx, job.ID, []domain.Result{res, probRes}); err != nil {
			return domain.JobError, err
		}
	}
	return domain.JobFinished, nil
}

func (p *Pilot) ExecuteProviderSpecific(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	return domain.JobError, qerr.New(qerr.UnsupportedJobType, "local pilot only supports RUNNER jobs")
}

func (p *Pilot) CancelProviderSpecific(ctx context.Context, job *domain.Job, token string) error {
	return qerr.New(qerr.CancelUnsupported, "local simulator jobs run synchronously and cannot be canceled mid-execution")
}

func (p *Pilot) DefaultProvider() domain.Provider {
	return domain.Provider{
		Name:             providerName,
		WithToken:        false,
		SupportedFormats: p.SupportedFormats(),
	}
}

func (p *Pilot) DefaultJob(device domain.Device) (*domain.Job, error) {
	program := domain.QuantumProgram{
		SourceFormat:  domain.FormatQASM3,
		CircuitSource: bellPairQASM3,
	}
	deployment := domain.Deployment{
		Name:      providerName + "_Deployment",
		CreatedAt: time.Now(),
		Programs:  []domain.QuantumProgram{program},
	}
	return &domain.Job{
		Device:     device,
		Deployment: deployment,
		Shots:      4000,
		Type:       domain.JobRunner,
		State:      domain.JobReady,
		Name:       providerName + "Job",
		CreatedAt:  time.Now(),
	}, nil
}

func (p *Pilot) SaveDevicesFromProvider(ctx context.Context, token string, devices pilot.DeviceStore) error {
	seed, err := remote.LoadSeedDevices(seedFS, "qubitengine_standard_devices.json")
	if err != nil {
		return err
	}
	return remote.ReconcileDevices(ctx, devices, seed, providerName)
}

func (p *Pilot) IsDeviceAvailable(ctx context.Context, device domain.Device, token string) (bool, error) {
	return true, nil
}

func (p *Pilot) DeviceData(ctx context.Context, device domain.Device, token string) (map[string]any, error) {
	return map[string]any{
		"name":         device.Name,
		"provider":     providerName,
		"num_qubits":   device.NumQubits,
		"is_simulator": true,
		"is_local":     true,
	}, nil
}

func asCircuit(v any) (*domain.Circuit, error) {
	switch c := v.(type) {
	case *domain.Circuit:
		return c, nil
	case string:
		return transpiler.ParseQASM(c)
	default:
		return nil, qerr.New(qerr.Transpile, "local pilot cannot interpret prepared circuit value")
	}
}

func toAnyMap(m map[string]int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toAnyFloatMap(m map[string]float64) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Package braket implements the AWS-Braket-like pilot: RUNNER-only
// execution over QASM3, grounded on backend/backends/backends.go's
// RigettiBackend (closest teacher analogue of a remote text-submission
// backend) and aws_pilot.py (RUNNER-only contract, raw-bitstring counts,
// GHZ-3 default job).
package braket

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/pilot/remote"
	"github.com/perclft/qpilot/internal/qerr"
	"github.com/perclft/qpilot/internal/result"
	"github.com/perclft/qpilot/internal/transpiler"
)

const (
	providerName = "AWS-Braket"
	tokenEnvVar  = "AWS_BRAKET_TOKEN"
	defaultURL   = "https://braket.us-east-1.amazonaws.com"
)

//go:embed braket_standard_devices.json
var seedFS embed.FS

// Pilot talks to a Braket-like task submission API over HTTP.
type Pilot struct {
	client *remote.Client
}

// New builds a Braket pilot against baseURL (defaultURL in production).
func New(baseURL string) *Pilot {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Pilot{client: remote.New(baseURL)}
}

var _ pilot.Pilot = (*Pilot)(nil)

func (p *Pilot) ProviderName() string { return providerName }

func (p *Pilot) SupportedFormats() []domain.Format {
	return []domain.Format{domain.FormatQASM3}
}

type taskRequest struct {
	Action string `json:"action"`
	Shots  int    `json:"shots"`
}

type taskResponse struct {
	MeasurementCounts map[string]int `json:"measurementCounts"`
}

func (p *Pilot) Run(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	token = remote.ResolveToken(token, tokenEnvVar)

	results := make([]domain.Result, 0, len(circuits)*2)
	for _, pc := range circuits {
		qasm, err := asQASM(pc.Circuit)
		if err != nil {
			return domain.JobError, err
		}

		var resp taskResponse
		if err := p.client.PostJSON(ctx, "/quantum-tasks", token, taskRequest{Action: qasm, Shots: job.Shots}, &resp); err != nil {
			return domain.JobError, err
		}

		hexCounts, err := result.BinaryCountsToHex(resp.MeasurementCounts, false)
		if err != nil {
			return domain.JobError, err
		}
		results = append(results,
			domain.Result{ProgramID: pc.Program.ID, Type: domain.ResultCounts, Data: toAnyMap(hexCounts), Meta: map[string]any{"format": "hex", "shots": job.Shots}},
			domain.Result{ProgramID: pc.Program.ID, Type: domain.ResultProbabilities, Data: toAnyFloatMap(result.CountsToProbabilities(hexCounts))},
		)
	}
	if err := sink.SaveResults(ctx, job.ID, results); err != nil {
		return domain.JobError, err
	}
	return domain.JobFinished, nil
}

func (p *Pilot) ExecuteProviderSpecific(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	return domain.JobError, qerr.New(qerr.UnsupportedJobType, fmt.Sprintf("Braket pilot does not support job type %s", job.Type))
}

func (p *Pilot) CancelProviderSpecific(ctx context.Context, job *domain.Job, token string) error {
	token = remote.ResolveToken(token, tokenEnvVar)
	path := fmt.Sprintf("/quantum-tasks/%s/cancel", job.ProviderSpecificID)
	return p.client.PostJSON(ctx, path, token, struct{}{}, nil)
}

func (p *Pilot) DefaultProvider() domain.Provider {
	return domain.Provider{Name: providerName, WithToken: true, SupportedFormats: p.SupportedFormats()}
}

const ghz3QASM3 = `OPENQASM 3;
qubit[3] q;
bit[3] c;
h q[0];
cx q[0], q[1];
cx q[1], q[2];
c = measure q;
`

func (p *Pilot) DefaultJob(device domain.Device) (*domain.Job, error) {
	program := domain.QuantumProgram{SourceFormat: domain.FormatQASM3, CircuitSource: ghz3QASM3}
	deployment := domain.Deployment{Name: "DeploymentAWSQasmName", CreatedAt: time.Now(), Programs: []domain.QuantumProgram{program}}
	return &domain.Job{
		Device:     device,
		Deployment: deployment,
		Shots:      4000,
		Type:       domain.JobRunner,
		State:      domain.JobReady,
		Name:       "AWSJob",
		CreatedAt:  time.Now(),
	}, nil
}

func (p *Pilot) SaveDevicesFromProvider(ctx context.Context, token string, devices pilot.DeviceStore) error {
	seed, err := remote.LoadSeedDevices(seedFS, "braket_standard_devices.json")
	if err != nil {
		return err
	}
	return remote.ReconcileDevices(ctx, devices, seed, providerName)
}

func (p *Pilot) IsDeviceAvailable(ctx context.Context, device domain.Device, token string) (bool, error) {
	if device.IsLocal {
		return true, nil
	}
	var resp struct {
		Status string `json:"status"`
	}
	token = remote.ResolveToken(token, tokenEnvVar)
	if err := p.client.GetJSON(ctx, "/devices/"+device.Name, token, &resp); err != nil {
		return false, err
	}
	return resp.Status == "ONLINE", nil
}

func (p *Pilot) DeviceData(ctx context.Context, device domain.Device, token string) (map[string]any, error) {
	token = remote.ResolveToken(token, tokenEnvVar)
	var cfg map[string]any
	if err := p.client.GetJSON(ctx, "/devices/"+device.Name, token, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func asQASM(v any) (string, error) {
	switch c := v.(type) {
	case string:
		return c, nil
	case *domain.Circuit:
		return transpiler.CircuitToQASM3(c)
	default:
		return "", qerr.New(qerr.Transpile, "Braket pilot cannot interpret prepared circuit value")
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

// Package ibm implements the IBM Quantum pilot: QASM submission over the
// Runtime HTTP API, grounded on backend/backends/backends.go's
// IBMQuantumBackend (endpoint shape, QASM rendering, bearer auth) and
// ibm_pilot.py (RUNNER/SAMPLER/ESTIMATOR dispatch, token-from-env
// fallback, result-type mapping).
package ibm

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
	providerName = "IBM"
	tokenEnvVar  = "IBM_TOKEN"
	defaultURL   = "https://api.quantum-computing.ibm.com/runtime"
)

//go:embed ibm_standard_devices.json
var seedFS embed.FS

// Pilot talks to IBM's Runtime API over HTTP.
type Pilot struct {
	client *remote.Client
}

// New builds an IBM pilot against baseURL (defaultURL in production).
func New(baseURL string) *Pilot {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Pilot{client: remote.New(baseURL)}
}

var _ pilot.Pilot = (*Pilot)(nil)

func (p *Pilot) ProviderName() string { return providerName }

func (p *Pilot) SupportedFormats() []domain.Format {
	return []domain.Format{domain.FormatQASM3, domain.FormatQASM2}
}

type submitRequest struct {
	ProgramID string         `json:"program_id"`
	Backend   string         `json:"backend"`
	Params    map[string]any `json:"params"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type runnerResult struct {
	ID      string `json:"id"`
	Results []struct {
		Counts map[string]int `json:"counts"`
	} `json:"results"`
}

func (p *Pilot) Run(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	token = remote.ResolveToken(token, tokenEnvVar)
	if token == "" {
		return domain.JobError, qerr.New(qerr.Unauthorized, "IBM pilot requires a token (request token or IBM_TOKEN env var)")
	}

	qasmCircuits := make([]string, 0, len(circuits))
	for _, pc := range circuits {
		qasm, err := asQASM(pc.Circuit)
		if err != nil {
			return domain.JobError, err
		}
		qasmCircuits = append(qasmCircuits, qasm)
	}

	var resp runnerResult
	err := p.client.PostJSON(ctx, "/jobs", token, submitRequest{
		ProgramID: "sampler",
		Backend:   job.Device.Name,
		Params: map[string]any{
			"circuits": qasmCircuits,
			"shots":    job.Shots,
		},
	}, &resp)
	if err != nil {
		return domain.JobError, err
	}
	job.ProviderSpecificID = resp.ID

	results := make([]domain.Result, 0, len(circuits)*2)
	for i, pc := range circuits {
		// IBM's Runtime API already returns hex-keyed counts (qiskit's
		// native Result.get_counts shape), so no conversion is needed here
		// unlike internal/result's helpers for SDKs that key by raw binary.
		hexCounts := map[string]int{}
		if i < len(resp.Results) {
			hexCounts = resp.Results[i].Counts
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

type samplerResponse struct {
	QuasiDists []map[string]float64 `json:"quasi_dists"`
}

type estimatorResponse struct {
	Values    []float64 `json:"values"`
	Variances []float64 `json:"variances"`
}

func (p *Pilot) ExecuteProviderSpecific(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	token = remote.ResolveToken(token, tokenEnvVar)
	if token == "" {
		return domain.JobError, qerr.New(qerr.Unauthorized, "IBM pilot requires a token (request token or IBM_TOKEN env var)")
	}

	qasmCircuits := make([]string, 0, len(circuits))
	for _, pc := range circuits {
		qasm, err := asQASM(pc.Circuit)
		if err != nil {
			return domain.JobError, err
		}
		qasmCircuits = append(qasmCircuits, qasm)
	}

	switch job.Type {
	case domain.JobSampler:
		var resp samplerResponse
		if err := p.client.PostJSON(ctx, "/jobs", token, submitRequest{ProgramID: "sampler-v2", Backend: job.Device.Name, Params: map[string]any{"circuits": qasmCircuits}}, &resp); err != nil {
			return domain.JobError, err
		}
		results := make([]domain.Result, 0, len(circuits))
		for i, pc := range circuits {
			var dist map[string]float64
			if i < len(resp.QuasiDists) {
				dist = resp.QuasiDists[i]
			}
			results = append(results, domain.Result{ProgramID: pc.Program.ID, Type: domain.ResultQuasiDist, Data: toAnyFloatMap(dist)})
		}
		if err := sink.SaveResults(ctx, job.ID, results); err != nil {
			return domain.JobError, err
		}
		return domain.JobFinished, nil

	case domain.JobEstimator:
		var resp estimatorResponse
		if err := p.client.PostJSON(ctx, "/jobs", token, submitRequest{ProgramID: "estimator-v2", Backend: job.Device.Name, Params: map[string]any{"circuits": qasmCircuits}}, &resp); err != nil {
			return domain.JobError, err
		}
		results := make([]domain.Result, 0, len(circuits))
		for i, pc := range circuits {
			var value, variance float64
			if i < len(resp.Values) {
				value = resp.Values[i]
			}
			if i < len(resp.Variances) {
				variance = resp.Variances[i]
			}
			results = append(results, domain.Result{
				ProgramID: pc.Program.ID,
				Type:      domain.ResultValueAndVariance,
				Data:      map[string]any{"value": value, "variance": variance},
			})
		}
		if err := sink.SaveResults(ctx, job.ID, results); err != nil {
			return domain.JobError, err
		}
		return domain.JobFinished, nil

	default:
		return domain.JobError, qerr.New(qerr.UnsupportedJobType, fmt.Sprintf("IBM pilot does not support job type %s", job.Type))
	}
}

func (p *Pilot) CancelProviderSpecific(ctx context.Context, job *domain.Job, token string) error {
	token = remote.ResolveToken(token, tokenEnvVar)
	path := fmt.Sprintf("/jobs/%s/cancel", job.ProviderSpecificID)
	return p.client.PostJSON(ctx, path, token, struct{}{}, nil)
}

func (p *Pilot) DefaultProvider() domain.Provider {
	return domain.Provider{Name: providerName, WithToken: true, SupportedFormats: p.SupportedFormats()}
}

const bellPairQASM3 = `OPENQASM 3.0;
include "stdgates.inc";
qubit[2] q;
bit[2] c;

h q[0];
cx q[0], q[1];

c = measure q;
`

func (p *Pilot) DefaultJob(device domain.Device) (*domain.Job, error) {
	program := domain.QuantumProgram{SourceFormat: domain.FormatQASM3, CircuitSource: bellPairQASM3}
	deployment := domain.Deployment{Name: providerName + "_Deployment", CreatedAt: time.Now(), Programs: []domain.QuantumProgram{program}}
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
	seed, err := remote.LoadSeedDevices(seedFS, "ibm_standard_devices.json")
	if err != nil {
		return err
	}
	return remote.ReconcileDevices(ctx, devices, seed, providerName)
}

type statusResponse struct {
	Operational bool `json:"operational"`
}

func (p *Pilot) IsDeviceAvailable(ctx context.Context, device domain.Device, token string) (bool, error) {
	if device.IsLocal {
		return true, nil
	}
	token = remote.ResolveToken(token, tokenEnvVar)
	var resp statusResponse
	if err := p.client.GetJSON(ctx, "/backends/"+device.Name+"/status", token, &resp); err != nil {
		return false, err
	}
	return resp.Operational, nil
}

func (p *Pilot) DeviceData(ctx context.Context, device domain.Device, token string) (map[string]any, error) {
	token = remote.ResolveToken(token, tokenEnvVar)
	var cfg map[string]any
	if err := p.client.GetJSON(ctx, "/backends/"+device.Name+"/configuration", token, &cfg); err != nil {
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
		return "", qerr.New(qerr.Transpile, "IBM pilot cannot interpret prepared circuit value")
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

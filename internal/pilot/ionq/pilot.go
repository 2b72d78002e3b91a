// Package ionq implements the IonQ pilot: native gate-list RUNNER
// submission plus the experimental FILE_UPLOAD/FILE_RUN pair, grounded on
// backend/backends/backends.go's IonQBackend (gate-list wire format,
// bearer auth) and ionq_pilot.py (upload-then-run split, provider-specific
// id carried between the two calls).
package ionq

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
	providerName = "IonQ"
	tokenEnvVar  = "IONQ_TOKEN"
	defaultURL   = "https://api.ionq.co/v0.3"
)

//go:embed ionq_standard_devices.json
var seedFS embed.FS

// Pilot talks to IonQ's native gate-list submission API over HTTP.
type Pilot struct {
	client *remote.Client
}

// New builds an IonQ pilot against baseURL (defaultURL in production).
func New(baseURL string) *Pilot {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Pilot{client: remote.New(baseURL)}
}

var _ pilot.Pilot = (*Pilot)(nil)

func (p *Pilot) ProviderName() string { return providerName }

func (p *Pilot) SupportedFormats() []domain.Format {
	return []domain.Format{transpiler.FormatCircuitIR, domain.FormatQASM3}
}

type jobRequest struct {
	Target string         `json:"target"`
	Shots  int             `json:"shots"`
	Input  map[string]any `json:"input"`
}

type jobResponse struct {
	ID        string         `json:"id"`
	Histogram map[string]int `json:"histogram"`
}

func (p *Pilot) Run(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	token = remote.ResolveToken(token, tokenEnvVar)
	if token == "" {
		return domain.JobError, qerr.New(qerr.Unauthorized, "IonQ API token is missing")
	}

	results := make([]domain.Result, 0, len(circuits)*2)
	for _, pc := range circuits {
		circuit, err := asCircuit(pc.Circuit)
		if err != nil {
			return domain.JobError, err
		}

		var resp jobResponse
		err = p.client.PostJSON(ctx, "/jobs", token, jobRequest{
			Target: job.Device.Name,
			Shots:  job.Shots,
			Input:  circuitToIonQ(circuit),
		}, &resp)
		if err != nil {
			return domain.JobError, err
		}
		job.ProviderSpecificID = resp.ID

		intCounts, err := decimalCountsToInt(resp.Histogram)
		if err != nil {
			return domain.JobError, err
		}
		hexCounts, err := result.IntegerCountsToHex(intCounts)
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

type uploadResponse struct {
	ProgramID string `json:"program_id"`
}

func (p *Pilot) ExecuteProviderSpecific(ctx context.Context, job *domain.Job, circuits []pilot.PreparedCircuit, token string, sink pilot.ResultSink) (domain.JobState, error) {
	token = remote.ResolveToken(token, tokenEnvVar)
	if token == "" {
		return domain.JobError, qerr.New(qerr.Unauthorized, "IonQ API token is missing")
	}

	switch job.Type {
	case domain.JobFileUpload:
		if len(circuits) == 0 {
			return domain.JobError, qerr.New(qerr.Validation, "FILE_UPLOAD job has no program to upload")
		}
		var resp uploadResponse
		if err := p.client.PostJSON(ctx, "/programs", token, map[string]any{"file_ref": circuits[0].Program.PythonFileRef}, &resp); err != nil {
			return domain.JobError, err
		}
		job.ProviderSpecificID = resp.ProgramID
		res := domain.Result{
			Type: domain.ResultUploadSuccessful,
			Data: map[string]any{"ionq_job_id": resp.ProgramID},
		}
		if err := sink.SaveResults(ctx, job.ID, []domain.Result{res}); err != nil {
			return domain.JobError, err
		}
		// Upload is a staging step, not a terminal success: the job stays
		// READY and keeps its FILE_UPLOAD type (ionq_pilot.py's
		// upload_program leaves job_state = READY). The uploaded id is kept
		// in this job's ProviderSpecificID and result only; CreateAndRun and
		// ReRunByID start every new job, FILE_RUN included, without one.
		return domain.JobReady, nil

	case domain.JobFileRun:
		if job.ProviderSpecificID == "" {
			return domain.JobError, qerr.New(qerr.Validation, "FILE_RUN job has no uploaded program id")
		}
		var resp jobResponse
		path := fmt.Sprintf("/programs/%s/run", job.ProviderSpecificID)
		if err := p.client.PostJSON(ctx, path, token, map[string]any{
			"inputs":  job.FileUploadInputs,
			"options": job.FileUploadOptions,
		}, &resp); err != nil {
			return domain.JobError, err
		}
		intCounts, err := decimalCountsToInt(resp.Histogram)
		if err != nil {
			return domain.JobError, err
		}
		hexCounts, err := result.IntegerCountsToHex(intCounts)
		if err != nil {
			return domain.JobError, err
		}
		res := domain.Result{Type: domain.ResultCounts, Data: toAnyMap(hexCounts), Meta: map[string]any{"format": "hex"}}
		if err := sink.SaveResults(ctx, job.ID, []domain.Result{res}); err != nil {
			return domain.JobError, err
		}
		return domain.JobFinished, nil

	default:
		return domain.JobError, qerr.New(qerr.UnsupportedJobType, fmt.Sprintf("IonQ pilot does not support job type %s", job.Type))
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

const bellPairQASM3 = `OPENQASM 3;
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
	seed, err := remote.LoadSeedDevices(seedFS, "ionq_standard_devices.json")
	if err != nil {
		return err
	}
	return remote.ReconcileDevices(ctx, devices, seed, providerName)
}

func (p *Pilot) IsDeviceAvailable(ctx context.Context, device domain.Device, token string) (bool, error) {
	if device.IsLocal {
		return true, nil
	}
	token = remote.ResolveToken(token, tokenEnvVar)
	var resp struct {
		Status string `json:"status"`
	}
	if err := p.client.GetJSON(ctx, "/backends/"+device.Name, token, &resp); err != nil {
		return false, err
	}
	return resp.Status == "available", nil
}

func (p *Pilot) DeviceData(ctx context.Context, device domain.Device, token string) (map[string]any, error) {
	token = remote.ResolveToken(token, tokenEnvVar)
	var cfg map[string]any
	if err := p.client.GetJSON(ctx, "/backends/"+device.Name, token, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func asCircuit(v any) (*domain.Circuit, error) {
	switch c := v.(type) {
	case *domain.Circuit:
		return c, nil
	case string:
		return transpiler.ParseQASM(c)
	default:
		return nil, qerr.New(qerr.Transpile, "IonQ pilot cannot interpret prepared circuit value")
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

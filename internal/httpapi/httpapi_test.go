package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/httpapi"
	"github.com/perclft/qpilot/internal/orchestrator"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/pilot/local"
	"github.com/perclft/qpilot/internal/queue"
	"github.com/perclft/qpilot/internal/store"
	"github.com/perclft/qpilot/internal/transpiler"
)

const bellPairQASM3 = `OPENQASM 3;
qubit[2] q;
bit[2] c;
h q[0];
cx q[0], q[1];
c = measure q;
`

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	st := store.NewMemory()
	q := queue.NewInProcess(2)
	graph := transpiler.NewStandardGraph()
	p := local.New()
	pilots := map[string]pilot.Pilot{p.ProviderName(): p}
	orch := orchestrator.New(st, q, graph, pilots, nil, nil, false, false)
	router := httpapi.NewRouter(orch, st, pilots, nil, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url, owner string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-User-Id", owner)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestCreateAndFetchJobEndToEnd(t *testing.T) {
	srv, st := newTestServer(t)

	deployment := &domain.Deployment{
		Name:  "bell-pair",
		Owner: "alice",
		Programs: []domain.QuantumProgram{
			{SourceFormat: domain.FormatQASM3, CircuitSource: bellPairQASM3},
		},
	}
	if err := st.SaveDeployment(context.Background(), deployment); err != nil {
		t.Fatalf("SaveDeployment: %v", err)
	}
	if err := st.UpsertDevice(context.Background(), domain.Device{Provider: "QubitEngine", Name: "sim", NumQubits: 4, IsSimulator: true, IsLocal: true}); err != nil {
		t.Fatalf("UpsertDevice: %v", err)
	}

	createBody := map[string]any{
		"deployment_id":   deployment.ID,
		"device_provider": "QubitEngine",
		"device_name":     "sim",
		"shots":           100,
		"type":            "RUNNER",
		"name":            "bell-pair-run",
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/jobs/", "alice", createBody)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create job status = %d", resp.StatusCode)
	}

	var job domain.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.State != domain.JobFinished {
		t.Errorf("job.State = %v, want FINISHED", job.State)
	}

	getResp := doJSON(t, http.MethodGet, srv.URL+"/jobs/"+job.ID+"/", "alice", nil)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get job status = %d", getResp.StatusCode)
	}
}

func TestGetJobForbiddenForOtherOwner(t *testing.T) {
	srv, st := newTestServer(t)

	job := &domain.Job{Owner: "alice", State: domain.JobFinished}
	if err := st.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/jobs/"+job.ID+"/", "mallory", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/jobs/does-not-exist/", "alice", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateJobValidationError(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/jobs/", "alice", map[string]any{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListDeploymentsFiltersByOwner(t *testing.T) {
	srv, st := newTestServer(t)

	if err := st.SaveDeployment(context.Background(), &domain.Deployment{Name: "a", Owner: "alice"}); err != nil {
		t.Fatalf("SaveDeployment: %v", err)
	}
	if err := st.SaveDeployment(context.Background(), &domain.Deployment{Name: "b", Owner: "bob"}); err != nil {
		t.Fatalf("SaveDeployment: %v", err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/deployments/", "alice", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var deployments []*domain.Deployment
	if err := json.NewDecoder(resp.Body).Decode(&deployments); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(deployments) != 1 || deployments[0].Name != "a" {
		t.Errorf("deployments = %v, want exactly alice's deployment", deployments)
	}
}

func TestReconcileUnknownProviderNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/providers/NoSuchProvider/reconcile", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

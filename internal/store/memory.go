package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

// Memory is a mutex-guarded in-memory Store, written in the same shape as
// Postgres (same interface, maps instead of a connection) so unit tests
// don't need a running database, the way the teacher has no test suite to
// ground an in-memory store on at all.
type Memory struct {
	mu          sync.RWMutex
	jobs        map[string]*domain.Job
	results     map[string][]domain.Result
	deployments map[string]*domain.Deployment
	devices     map[string]domain.Device // keyed by provider+"/"+name
	providers   map[string]domain.Provider
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs:        make(map[string]*domain.Job),
		results:     make(map[string][]domain.Result),
		deployments: make(map[string]*domain.Deployment),
		devices:     make(map[string]domain.Device),
		providers:   make(map[string]domain.Provider),
	}
}

var _ Store = (*Memory)(nil)

func deviceKey(provider, name string) string { return provider + "/" + name }

func (m *Memory) SaveJob(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, qerr.New(qerr.NotFound, "job not found: "+id)
	}
	cp := *j
	return &cp, nil
}

func (m *Memory) ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if !j.VisibleTo(filter.Owner) {
			continue
		}
		if filter.DeviceName != "" && j.Device.Name != filter.DeviceName {
			continue
		}
		if filter.State != "" && j.State != filter.State {
			continue
		}
		cp := *j
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, k int) bool {
		return matched[i].CreatedAt.After(matched[k].CreatedAt)
	})

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *Memory) DeleteJob(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return qerr.New(qerr.NotFound, "job not found: "+id)
	}
	delete(m.jobs, id)
	delete(m.results, id)
	return nil
}

func (m *Memory) SaveResults(ctx context.Context, jobID string, results []domain.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.New().String()
		}
		results[i].JobID = jobID
	}
	m.results[jobID] = append(m.results[jobID], results...)
	return nil
}

func (m *Memory) ListResults(ctx context.Context, jobID string) ([]domain.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Result(nil), m.results[jobID]...), nil
}

func (m *Memory) SaveDeployment(ctx context.Context, d *domain.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	cp := *d
	m.deployments[d.ID] = &cp
	return nil
}

func (m *Memory) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deployments[id]
	if !ok {
		return nil, qerr.New(qerr.NotFound, "deployment not found: "+id)
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) ListDeployments(ctx context.Context, owner domain.UserID) ([]*domain.Deployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Deployment, 0, len(m.deployments))
	for _, d := range m.deployments {
		if owner != domain.NullOwner && d.Owner != owner {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (m *Memory) ForkDeployment(ctx context.Context, sourceID string, newOwner domain.UserID) (*domain.Deployment, error) {
	m.mu.Lock()
	src, ok := m.deployments[sourceID]
	if !ok {
		m.mu.Unlock()
		return nil, qerr.New(qerr.NotFound, "deployment not found: "+sourceID)
	}
	fork := *src
	fork.ID = uuid.New().String()
	fork.Name = src.Name + " (fork)"
	fork.Owner = newOwner
	fork.CreatedAt = time.Now()
	fork.Programs = append([]domain.QuantumProgram(nil), src.Programs...)
	for i := range fork.Programs {
		fork.Programs[i].ID = uuid.New().String()
		fork.Programs[i].DeploymentID = fork.ID
	}
	cp := fork
	m.deployments[fork.ID] = &cp
	m.mu.Unlock()

	result := cp
	return &result, nil
}

func (m *Memory) DeleteDeployment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deployments[id]; !ok {
		return qerr.New(qerr.NotFound, "deployment not found: "+id)
	}
	delete(m.deployments, id)
	return nil
}

func (m *Memory) UpsertDevice(ctx context.Context, d domain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[deviceKey(d.Provider, d.Name)] = d
	return nil
}

func (m *Memory) ListDevicesByProvider(ctx context.Context, provider string) ([]domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Device, 0)
	for _, d := range m.devices {
		if d.Provider == provider {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (m *Memory) ListDevices(ctx context.Context) ([]domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Provider != out[k].Provider {
			return out[i].Provider < out[k].Provider
		}
		return out[i].Name < out[k].Name
	})
	return out, nil
}

func (m *Memory) GetDevice(ctx context.Context, provider, name string) (domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[deviceKey(provider, name)]
	if !ok {
		return domain.Device{}, qerr.New(qerr.NotFound, "device not found: "+deviceKey(provider, name))
	}
	return d, nil
}

func (m *Memory) SaveProvider(ctx context.Context, p domain.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Name] = p
	return nil
}

func (m *Memory) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Provider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (m *Memory) GetProvider(ctx context.Context, name string) (domain.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[name]
	if !ok {
		return domain.Provider{}, qerr.New(qerr.NotFound, "provider not found: "+name)
	}
	return p, nil
}

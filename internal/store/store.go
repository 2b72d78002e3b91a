// Package store is qpilot's persistence boundary: a JobStore /
// DeploymentStore / DeviceStore / ProviderStore interface set, backed by
// either a hand-rolled lib/pq Postgres implementation (postgres.go) or an
// in-memory one (memory.go) for tests and local development, grounded on
// services/registry/main.go's InitDB/SaveCircuit/ListCircuits pattern.
package store

import (
	"context"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/pilot"
)

// JobFilter narrows ListJobs the way registry's ListCircuitsRequest
// narrows ListCircuits: zero-value fields are unfiltered, except Owner,
// which always applies: only jobs visible to Owner (its own and null-owner
// jobs, as domain.Job.VisibleTo decides) are listed.
type JobFilter struct {
	Owner      domain.UserID
	DeviceName string
	State      domain.JobState
	Page       int
	PageSize   int
}

// JobStore persists Job rows.
type JobStore interface {
	SaveJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error)
	DeleteJob(ctx context.Context, id string) error
	SaveResults(ctx context.Context, jobID string, results []domain.Result) error
	ListResults(ctx context.Context, jobID string) ([]domain.Result, error)
}

// DeploymentStore persists Deployment rows and their owned programs.
type DeploymentStore interface {
	SaveDeployment(ctx context.Context, d *domain.Deployment) error
	GetDeployment(ctx context.Context, id string) (*domain.Deployment, error)
	ListDeployments(ctx context.Context, owner domain.UserID) ([]*domain.Deployment, error)
	ForkDeployment(ctx context.Context, sourceID string, newOwner domain.UserID) (*domain.Deployment, error)
	DeleteDeployment(ctx context.Context, id string) error
}

// DeviceStore persists Device rows. It is a superset of
// pilot.DeviceStore, the narrow interface pilots need, so any DeviceStore
// here also satisfies that interface.
type DeviceStore interface {
	pilot.DeviceStore
	ListDevices(ctx context.Context) ([]domain.Device, error)
	GetDevice(ctx context.Context, provider, name string) (domain.Device, error)
}

// ProviderStore persists Provider rows.
type ProviderStore interface {
	SaveProvider(ctx context.Context, p domain.Provider) error
	ListProviders(ctx context.Context) ([]domain.Provider, error)
	GetProvider(ctx context.Context, name string) (domain.Provider, error)
}

// Store bundles the four interfaces qpilotd wires into the orchestrator
// and HTTP layer.
type Store interface {
	JobStore
	DeploymentStore
	DeviceStore
	ProviderStore
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

const schema = `
CREATE TABLE IF NOT EXISTS providers (
	name VARCHAR(255) PRIMARY KEY,
	with_token BOOLEAN NOT NULL DEFAULT false,
	supported_formats JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS devices (
	provider VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	num_qubits INTEGER NOT NULL,
	is_simulator BOOLEAN NOT NULL DEFAULT false,
	is_local BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (provider, name)
);

CREATE TABLE IF NOT EXISTS deployments (
	id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	owner VARCHAR(255) NOT NULL DEFAULT '',
	programs_json JSONB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_deployments_owner ON deployments(owner);

CREATE TABLE IF NOT EXISTS jobs (
	id UUID PRIMARY KEY,
	owner VARCHAR(255) NOT NULL DEFAULT '',
	device_provider VARCHAR(255) NOT NULL,
	device_name VARCHAR(255) NOT NULL,
	deployment_id UUID NOT NULL,
	deployment_json JSONB NOT NULL,
	shots INTEGER NOT NULL,
	job_type VARCHAR(32) NOT NULL,
	state VARCHAR(32) NOT NULL,
	name VARCHAR(255) NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at TIMESTAMP,
	finished_at TIMESTAMP,
	provider_specific_id VARCHAR(255) NOT NULL DEFAULT '',
	backend_state_json JSONB,
	file_upload_inputs_json JSONB,
	file_upload_options_json JSONB
);

CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner);
CREATE INDEX IF NOT EXISTS idx_jobs_device ON jobs(device_name);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);

CREATE TABLE IF NOT EXISTS results (
	id UUID PRIMARY KEY,
	job_id UUID NOT NULL,
	program_id VARCHAR(255) NOT NULL DEFAULT '',
	result_type VARCHAR(32) NOT NULL,
	data_json JSONB NOT NULL,
	meta_json JSONB
);

CREATE INDEX IF NOT EXISTS idx_results_job ON results(job_id);
`

// Postgres is the lib/pq-backed Store, hand-rolled parameterized SQL with
// no ORM, grounded on services/registry/main.go's InitDB/SaveCircuit/
// ListCircuits pattern.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

var _ Store = (*Postgres)(nil)

func (p *Postgres) SaveJob(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	deploymentJSON, err := json.Marshal(job.Deployment)
	if err != nil {
		return fmt.Errorf("failed to serialize job deployment snapshot: %w", err)
	}
	backendStateJSON, _ := json.Marshal(job.BackendState)
	inputsJSON, _ := json.Marshal(job.FileUploadInputs)
	optionsJSON, _ := json.Marshal(job.FileUploadOptions)

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO jobs (id, owner, device_provider, device_name, deployment_id, deployment_json, shots, job_type, state, name, created_at, started_at, finished_at, provider_specific_id, backend_state_json, file_upload_inputs_json, file_upload_options_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			provider_specific_id = EXCLUDED.provider_specific_id,
			backend_state_json = EXCLUDED.backend_state_json
	`,
		job.ID, string(job.Owner), job.Device.Provider, job.Device.Name, job.DeploymentID, string(deploymentJSON),
		job.Shots, string(job.Type), string(job.State), job.Name, job.CreatedAt, job.StartedAt, job.FinishedAt,
		job.ProviderSpecificID, string(backendStateJSON), string(inputsJSON), string(optionsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, owner, device_provider, device_name, deployment_id, deployment_json, shots, job_type, state, name, created_at, started_at, finished_at, provider_specific_id, backend_state_json, file_upload_inputs_json, file_upload_options_json
		FROM jobs WHERE id = $1
	`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, qerr.New(qerr.NotFound, "job not found: "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}

func (p *Postgres) ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error) {
	query := `SELECT id, owner, device_provider, device_name, deployment_id, deployment_json, shots, job_type, state, name, created_at, started_at, finished_at, provider_specific_id, backend_state_json, file_upload_inputs_json, file_upload_options_json FROM jobs WHERE 1=1`
	args := []any{}
	argIdx := 1

	query += fmt.Sprintf(" AND (owner = $%d OR owner = '')", argIdx)
	args = append(args, string(filter.Owner))
	argIdx++
	if filter.DeviceName != "" {
		query += fmt.Sprintf(" AND device_name = $%d", argIdx)
		args = append(args, filter.DeviceName)
		argIdx++
	}
	if filter.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, string(filter.State))
		argIdx++
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", pageSize, offset)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (p *Postgres) DeleteJob(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return qerr.New(qerr.NotFound, "job not found: "+id)
	}
	_, _ = p.db.ExecContext(ctx, `DELETE FROM results WHERE job_id = $1`, id)
	return nil
}

func (p *Postgres) SaveResults(ctx context.Context, jobID string, results []domain.Result) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin result transaction: %w", err)
	}
	defer tx.Rollback()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.New().String()
		}
		dataJSON, err := json.Marshal(results[i].Data)
		if err != nil {
			return fmt.Errorf("failed to serialize result data: %w", err)
		}
		metaJSON, _ := json.Marshal(results[i].Meta)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO results (id, job_id, program_id, result_type, data_json, meta_json)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, results[i].ID, jobID, results[i].ProgramID, string(results[i].Type), string(dataJSON), string(metaJSON))
		if err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

func (p *Postgres) ListResults(ctx context.Context, jobID string) ([]domain.Result, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, job_id, program_id, result_type, data_json, meta_json FROM results WHERE job_id = $1
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var r domain.Result
		var dataJSON, metaJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.JobID, &r.ProgramID, &r.Type, &dataJSON, &metaJSON); err != nil {
			continue
		}
		if dataJSON.Valid {
			_ = json.Unmarshal([]byte(dataJSON.String), &r.Data)
		}
		if metaJSON.Valid {
			_ = json.Unmarshal([]byte(metaJSON.String), &r.Meta)
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Postgres) SaveDeployment(ctx context.Context, d *domain.Deployment) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	programsJSON, err := json.Marshal(d.Programs)
	if err != nil {
		return fmt.Errorf("failed to serialize deployment programs: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO deployments (id, name, owner, programs_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, programs_json = EXCLUDED.programs_json
	`, d.ID, d.Name, string(d.Owner), string(programsJSON), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save deployment: %w", err)
	}
	return nil
}

func (p *Postgres) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, name, owner, programs_json, created_at FROM deployments WHERE id = $1`, id)
	d, err := scanDeployment(row)
	if err == sql.ErrNoRows {
		return nil, qerr.New(qerr.NotFound, "deployment not found: "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment: %w", err)
	}
	return d, nil
}

func (p *Postgres) ListDeployments(ctx context.Context, owner domain.UserID) ([]*domain.Deployment, error) {
	query := `SELECT id, name, owner, programs_json, created_at FROM deployments WHERE 1=1`
	args := []any{}
	if owner != domain.NullOwner {
		query += " AND owner = $1"
		args = append(args, string(owner))
	}
	query += " ORDER BY created_at DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (p *Postgres) ForkDeployment(ctx context.Context, sourceID string, newOwner domain.UserID) (*domain.Deployment, error) {
	src, err := p.GetDeployment(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	fork := &domain.Deployment{
		Name:     src.Name + " (fork)",
		Owner:    newOwner,
		Programs: append([]domain.QuantumProgram(nil), src.Programs...),
	}
	for i := range fork.Programs {
		fork.Programs[i].ID = uuid.New().String()
	}
	if err := p.SaveDeployment(ctx, fork); err != nil {
		return nil, err
	}
	return fork, nil
}

func (p *Postgres) DeleteDeployment(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM deployments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deployment: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return qerr.New(qerr.NotFound, "deployment not found: "+id)
	}
	return nil
}

func (p *Postgres) UpsertDevice(ctx context.Context, d domain.Device) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO devices (provider, name, num_qubits, is_simulator, is_local)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, name) DO UPDATE SET
			num_qubits = EXCLUDED.num_qubits,
			is_simulator = EXCLUDED.is_simulator,
			is_local = EXCLUDED.is_local
	`, d.Provider, d.Name, d.NumQubits, d.IsSimulator, d.IsLocal)
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

func (p *Postgres) ListDevicesByProvider(ctx context.Context, provider string) ([]domain.Device, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT provider, name, num_qubits, is_simulator, is_local FROM devices WHERE provider = $1 ORDER BY name`, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()
	return scanDevices(rows)
}

func (p *Postgres) ListDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT provider, name, num_qubits, is_simulator, is_local FROM devices ORDER BY provider, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()
	return scanDevices(rows)
}

func (p *Postgres) GetDevice(ctx context.Context, provider, name string) (domain.Device, error) {
	var d domain.Device
	err := p.db.QueryRowContext(ctx, `SELECT provider, name, num_qubits, is_simulator, is_local FROM devices WHERE provider = $1 AND name = $2`, provider, name).
		Scan(&d.Provider, &d.Name, &d.NumQubits, &d.IsSimulator, &d.IsLocal)
	if err == sql.ErrNoRows {
		return domain.Device{}, qerr.New(qerr.NotFound, "device not found: "+provider+"/"+name)
	}
	if err != nil {
		return domain.Device{}, fmt.Errorf("failed to load device: %w", err)
	}
	return d, nil
}

func (p *Postgres) SaveProvider(ctx context.Context, prov domain.Provider) error {
	formatsJSON, err := json.Marshal(prov.SupportedFormats)
	if err != nil {
		return fmt.Errorf("failed to serialize provider formats: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO providers (name, with_token, supported_formats)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET with_token = EXCLUDED.with_token, supported_formats = EXCLUDED.supported_formats
	`, prov.Name, prov.WithToken, string(formatsJSON))
	if err != nil {
		return fmt.Errorf("failed to save provider: %w", err)
	}
	return nil
}

func (p *Postgres) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, with_token, supported_formats FROM providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var out []domain.Provider
	for rows.Next() {
		var prov domain.Provider
		var formatsJSON string
		if err := rows.Scan(&prov.Name, &prov.WithToken, &formatsJSON); err != nil {
			continue
		}
		_ = json.Unmarshal([]byte(formatsJSON), &prov.SupportedFormats)
		out = append(out, prov)
	}
	return out, nil
}

func (p *Postgres) GetProvider(ctx context.Context, name string) (domain.Provider, error) {
	var prov domain.Provider
	var formatsJSON string
	err := p.db.QueryRowContext(ctx, `SELECT name, with_token, supported_formats FROM providers WHERE name = $1`, name).
		Scan(&prov.Name, &prov.WithToken, &formatsJSON)
	if err == sql.ErrNoRows {
		return domain.Provider{}, qerr.New(qerr.NotFound, "provider not found: "+name)
	}
	if err != nil {
		return domain.Provider{}, fmt.Errorf("failed to load provider: %w", err)
	}
	_ = json.Unmarshal([]byte(formatsJSON), &prov.SupportedFormats)
	return prov, nil
}

// scanner is the subset of *sql.Row/*sql.Rows scanJob and scanDeployment
// both need.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*domain.Job, error) {
	var job domain.Job
	var ownerStr, typeStr, stateStr string
	var deploymentJSON string
	var backendStateJSON, inputsJSON, optionsJSON sql.NullString

	err := s.Scan(
		&job.ID, &ownerStr, &job.Device.Provider, &job.Device.Name, &job.DeploymentID, &deploymentJSON,
		&job.Shots, &typeStr, &stateStr, &job.Name, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
		&job.ProviderSpecificID, &backendStateJSON, &inputsJSON, &optionsJSON,
	)
	if err != nil {
		return nil, err
	}

	job.Owner = domain.UserID(ownerStr)
	job.Type = domain.JobType(typeStr)
	job.State = domain.JobState(stateStr)
	_ = json.Unmarshal([]byte(deploymentJSON), &job.Deployment)
	if backendStateJSON.Valid {
		_ = json.Unmarshal([]byte(backendStateJSON.String), &job.BackendState)
	}
	if inputsJSON.Valid {
		_ = json.Unmarshal([]byte(inputsJSON.String), &job.FileUploadInputs)
	}
	if optionsJSON.Valid {
		_ = json.Unmarshal([]byte(optionsJSON.String), &job.FileUploadOptions)
	}
	return &job, nil
}

func scanDeployment(s scanner) (*domain.Deployment, error) {
	var d domain.Deployment
	var ownerStr, programsJSON string
	if err := s.Scan(&d.ID, &d.Name, &ownerStr, &programsJSON, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Owner = domain.UserID(ownerStr)
	_ = json.Unmarshal([]byte(programsJSON), &d.Programs)
	return &d, nil
}

func scanDevices(rows *sql.Rows) ([]domain.Device, error) {
	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.Provider, &d.Name, &d.NumQubits, &d.IsSimulator, &d.IsLocal); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

package domain

import "time"

// User identity is an opaque subject string issued by an external
// authenticator (spec.md §3); qpilot never issues or validates tokens
// itself, it only compares owner strings.
type UserID string

// NullOwner marks a deployment/job as public/default (spec.md §3).
const NullOwner UserID = ""

// Provider is a named external service. Unique by Name.
type Provider struct {
	Name              string   `json:"name"`
	WithToken         bool     `json:"with_token"`
	SupportedFormats  []Format `json:"supported_formats"`
}

// Device is a (Provider, Name) pair. NumQubits -1 means unknown.
type Device struct {
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	NumQubits   int    `json:"num_qubits"`
	IsSimulator bool   `json:"is_simulator"`
	IsLocal     bool   `json:"is_local"`
}

// QuantumProgram is one circuit, tagged with its source format, owned by
// exactly one deployment. Immutable once referenced by a finished job's
// results (spec.md §3).
type QuantumProgram struct {
	ID             string `json:"id"`
	DeploymentID   string `json:"deployment_id"`
	SourceFormat   Format `json:"source_format"`
	CircuitSource  string `json:"circuit_source"`   // circuit text
	PythonFileRef  string `json:"python_file_ref,omitempty"`
}

// Deployment is an ordered, owned, named bundle of programs.
type Deployment struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Owner      UserID           `json:"owner"`
	CreatedAt  time.Time        `json:"created_at"`
	Programs   []QuantumProgram `json:"programs"`
}

// JobType selects which pilot entry point executes the job (spec.md §3/§4.3).
type JobType string

const (
	JobRunner     JobType = "RUNNER"
	JobSampler    JobType = "SAMPLER"
	JobEstimator  JobType = "ESTIMATOR"
	JobFileUpload JobType = "FILE_UPLOAD"
	JobFileRun    JobType = "FILE_RUN"
)

// JobState is the job lifecycle state (spec.md §4.5). PENDING is a queue
// sub-state, not a JobState value — it never appears on a persisted Job.
type JobState string

const (
	JobReady     JobState = "READY"
	JobRunning   JobState = "RUNNING"
	JobFinished  JobState = "FINISHED"
	JobError     JobState = "ERROR"
	JobCanceled  JobState = "CANCELED"
)

// Terminal reports whether no further transition is permitted from s
// (invariant 6, spec.md §8).
func (s JobState) Terminal() bool {
	switch s {
	case JobFinished, JobError, JobCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the state machine edges from spec.md §4.5/§8:
// READY -> {RUNNING, CANCELED}; RUNNING -> {FINISHED, ERROR, CANCELED};
// terminal states accept nothing.
func (s JobState) CanTransitionTo(next JobState) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case JobReady:
		return next == JobRunning || next == JobCanceled
	case JobRunning:
		return next == JobFinished || next == JobError || next == JobCanceled
	default:
		return false
	}
}

// Job is the execution record (spec.md §3).
type Job struct {
	ID                 string    `json:"id"`
	Owner              UserID    `json:"owner"`
	Device             Device    `json:"device"`
	DeploymentID       string    `json:"deployment_id"`
	// Deployment is a frozen snapshot of the programs at enqueue time; it
	// survives deletion of the live Deployment row (spec.md §3 Ownership).
	Deployment         Deployment `json:"deployment"`
	Shots              int        `json:"shots"`
	Type               JobType    `json:"type"`
	State              JobState   `json:"state"`
	Name               string     `json:"name"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	ProviderSpecificID string     `json:"provider_specific_id,omitempty"`
	// BackendState is a transient, provider-specific blob (e.g. a session
	// handle) that only the owning pilot interprets.
	BackendState       map[string]any `json:"backend_state,omitempty"`
	Token              string         `json:"-"` // request-scoped, never persisted/logged beyond this row
	// FileUploadInputs/FileUploadOptions carry the experimental
	// FILE_RUN job's user-supplied inputs against a previously uploaded
	// remote program id (spec.md §4.6).
	FileUploadInputs   map[string]any `json:"file_upload_inputs,omitempty"`
	FileUploadOptions  map[string]any `json:"file_upload_options,omitempty"`
}

// VisibleTo implements the ownership filter of invariant 8: a null-owner
// job is visible to everyone, an owned job only to its owner.
func (j *Job) VisibleTo(caller UserID) bool {
	return j.Owner == NullOwner || j.Owner == caller
}

// ResultType is the canonical result payload shape (spec.md §3/§4.4).
type ResultType string

const (
	ResultCounts           ResultType = "COUNTS"
	ResultProbabilities    ResultType = "PROBABILITIES"
	ResultQuasiDist        ResultType = "QUASI_DIST"
	ResultValueAndVariance ResultType = "VALUE_AND_VARIANCE"
	ResultExpectation      ResultType = "EXPECTATION"
	ResultUploadSuccessful ResultType = "UPLOAD_SUCCESSFUL"
	ResultScriptReturn     ResultType = "SCRIPT_RETURN"
	ResultError            ResultType = "ERROR"
)

// Result is (job, program, type, data, meta). Data/Meta are opaque JSON
// blobs at the persistence boundary but typed maps in-process.
type Result struct {
	ID        string         `json:"id"`
	JobID     string         `json:"job_id"`
	ProgramID string         `json:"program_id,omitempty"`
	Type      ResultType     `json:"result_type"`
	Data      map[string]any `json:"data"`
	Meta      map[string]any `json:"meta,omitempty"`
}

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/orchestrator"
	"github.com/perclft/qpilot/internal/qerr"
	"github.com/perclft/qpilot/internal/store"
)

// jobRequest mirrors JobRequestDto: the DTO a caller submits to
// create-and-run a job against an existing deployment.
type jobRequest struct {
	DeploymentID      string         `json:"deployment_id"`
	DeviceProvider    string         `json:"device_provider"`
	DeviceName        string         `json:"device_name"`
	Shots             int            `json:"shots"`
	Type              domain.JobType `json:"type"`
	Name              string         `json:"name"`
	FileUploadInputs  map[string]any `json:"file_upload_inputs,omitempty"`
	FileUploadOptions map[string]any `json:"file_upload_options,omitempty"`
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{Owner: caller(r)}
	if state := r.URL.Query().Get("state"); state != "" {
		filter.State = domain.JobState(state)
	}
	if device := r.URL.Query().Get("device"); device != "" {
		filter.DeviceName = device
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filter.Page = page
	}
	if pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		filter.PageSize = pageSize
	}

	jobs, err := s.st.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DeploymentID == "" || req.DeviceProvider == "" || req.DeviceName == "" {
		writeError(w, qerr.New(qerr.Validation, "deployment_id, device_provider and device_name are required"))
		return
	}

	deployment, err := s.st.GetDeployment(r.Context(), req.DeploymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	device, err := s.st.GetDevice(r.Context(), req.DeviceProvider, req.DeviceName)
	if err != nil {
		writeError(w, err)
		return
	}

	jobType := req.Type
	if jobType == "" {
		jobType = domain.JobRunner
	}

	job, err := s.orch.CreateAndRun(r.Context(), orchestrator.CreateJobRequest{
		Owner:             caller(r),
		Device:            device,
		DeploymentID:      deployment.ID,
		Deployment:        *deployment,
		Shots:             req.Shots,
		Type:              jobType,
		Name:              req.Name,
		Token:             providerToken(r),
		FileUploadInputs:  req.FileUploadInputs,
		FileUploadOptions: req.FileUploadOptions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	job, err := s.st.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !job.VisibleTo(caller(r)) {
		writeError(w, qerr.New(qerr.Forbidden, "job belongs to another owner"))
		return
	}

	results, err := s.st.ListResults(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobWithResults{Job: job, Results: results})
}

type jobWithResults struct {
	*domain.Job
	Results []domain.Result `json:"results"`
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if err := s.orch.DeleteByID(r.Context(), id, caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if err := s.orch.Cancel(r.Context(), id, caller(r), providerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) rerunJob(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	job, err := s.orch.ReRunByID(r.Context(), id, providerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

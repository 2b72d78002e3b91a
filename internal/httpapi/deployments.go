package httpapi

import (
	"net/http"
	"time"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

type deploymentRequest struct {
	Name     string                   `json:"name"`
	Programs []programRequest         `json:"programs"`
}

type programRequest struct {
	SourceFormat  domain.Format `json:"source_format"`
	CircuitSource string        `json:"circuit_source"`
	PythonFileRef string        `json:"python_file_ref,omitempty"`
}

func (s *Server) listDeployments(w http.ResponseWriter, r *http.Request) {
	deployments, err := s.st.ListDeployments(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deployments)
}

func (s *Server) createDeployment(w http.ResponseWriter, r *http.Request) {
	var req deploymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || len(req.Programs) == 0 {
		writeError(w, qerr.New(qerr.Validation, "name and at least one program are required"))
		return
	}

	programs := make([]domain.QuantumProgram, 0, len(req.Programs))
	for _, p := range req.Programs {
		programs = append(programs, domain.QuantumProgram{
			SourceFormat:  p.SourceFormat,
			CircuitSource: p.CircuitSource,
			PythonFileRef: p.PythonFileRef,
		})
	}

	deployment := &domain.Deployment{
		Name:      req.Name,
		Owner:     caller(r),
		CreatedAt: time.Now(),
		Programs:  programs,
	}
	if err := s.st.SaveDeployment(r.Context(), deployment); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

func (s *Server) getDeployment(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	deployment, err := s.st.GetDeployment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if deployment.Owner != domain.NullOwner && deployment.Owner != caller(r) {
		writeError(w, qerr.New(qerr.Forbidden, "deployment belongs to another owner"))
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

func (s *Server) deleteDeployment(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	deployment, err := s.st.GetDeployment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if deployment.Owner != domain.NullOwner && deployment.Owner != caller(r) {
		writeError(w, qerr.New(qerr.Forbidden, "deployment belongs to another owner"))
		return
	}
	if err := s.st.DeleteDeployment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) forkDeployment(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	fork, err := s.st.ForkDeployment(r.Context(), id, caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fork)
}

// Package httpapi is qpilot's external collaborator surface: a
// gorilla/mux route table over the orchestrator and store, matching the
// route table qunicorn_core/api/job_api, deployment_api, device_api and
// provider_api expose, reworked from Flask MethodViews into mux
// handlers. Handlers stay thin: decode request, call orchestrator or
// store, encode response.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/metrics"
	"github.com/perclft/qpilot/internal/obslog"
	"github.com/perclft/qpilot/internal/orchestrator"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/qerr"
	"github.com/perclft/qpilot/internal/store"
)

// Server bundles the dependencies every handler needs.
type Server struct {
	orch   *orchestrator.Orchestrator
	st     store.Store
	pilots map[string]pilot.Pilot
	log    *obslog.Logger
	m      *metrics.Registry
}

// NewRouter builds the full route table (spec.md §6) atop deps. pilots
// is keyed by pilot.ProviderName(), used only by the /providers
// reconcile endpoint.
func NewRouter(orch *orchestrator.Orchestrator, st store.Store, pilots map[string]pilot.Pilot, log *obslog.Logger, m *metrics.Registry) *mux.Router {
	s := &Server{orch: orch, st: st, pilots: pilots, log: log, m: m}

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	jobs := r.PathPrefix("/jobs").Subrouter()
	jobs.HandleFunc("/", s.listJobs).Methods(http.MethodGet)
	jobs.HandleFunc("/", s.createJob).Methods(http.MethodPost)
	jobs.HandleFunc("/{id}/", s.getJob).Methods(http.MethodGet)
	jobs.HandleFunc("/{id}/", s.deleteJob).Methods(http.MethodDelete)
	jobs.HandleFunc("/{id}/cancel", s.cancelJob).Methods(http.MethodPost)
	jobs.HandleFunc("/{id}/rerun", s.rerunJob).Methods(http.MethodPost)

	deployments := r.PathPrefix("/deployments").Subrouter()
	deployments.HandleFunc("/", s.listDeployments).Methods(http.MethodGet)
	deployments.HandleFunc("/", s.createDeployment).Methods(http.MethodPost)
	deployments.HandleFunc("/{id}/", s.getDeployment).Methods(http.MethodGet)
	deployments.HandleFunc("/{id}/", s.deleteDeployment).Methods(http.MethodDelete)
	deployments.HandleFunc("/{id}/fork", s.forkDeployment).Methods(http.MethodPost)

	devices := r.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("/", s.listDevices).Methods(http.MethodGet)
	devices.HandleFunc("/{provider}/{name}", s.getDevice).Methods(http.MethodGet)

	providers := r.PathPrefix("/providers").Subrouter()
	providers.HandleFunc("/", s.listProviders).Methods(http.MethodGet)
	providers.HandleFunc("/{name}/reconcile", s.reconcileProvider).Methods(http.MethodPut)

	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	return r
}

// loggingMiddleware logs one line per request, grounded on the
// teacher's request-scoped logging idiom (obslog.Logger.WithField).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.log != nil {
			s.log.WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Info("http request")
		}
	})
}

// caller extracts the opaque subject string qpilot never issues or
// validates itself (spec.md §3), carried on X-User-Id.
func caller(r *http.Request) domain.UserID {
	return domain.UserID(r.Header.Get("X-User-Id"))
}

// providerToken extracts the per-request provider credential (spec.md
// §6 "per-provider token fallbacks... consulted only when the request
// omits a token" — the fallback lookup itself is remote.ResolveToken,
// called inside each remote pilot, not here).
func providerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps err to spec.md §7's HTTP status table. Internal
// details are never echoed back to the caller (spec.md §7 "internal
// stack traces... never returned to the HTTP caller").
func writeError(w http.ResponseWriter, err error) {
	kind := qerr.KindOf(err)
	writeJSON(w, kind.HTTPStatus(), errorBody{Error: kind.String(), Message: publicMessage(err)})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func publicMessage(err error) string {
	var e *qerr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return qerr.Wrap(qerr.Validation, "malformed request body", err)
	}
	return nil
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

package httpapi

import (
	"net/http"

	"github.com/perclft/qpilot/internal/qerr"
)

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.st.ListProviders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

// reconcileProvider triggers save_devices_from_provider (spec.md §4.3):
// upsert the pilot's device directory (its embedded seed list; the provider
// itself is not queried), preserving unseen local devices.
func (s *Server) reconcileProvider(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "name")
	p, ok := s.pilots[name]
	if !ok {
		writeError(w, qerr.New(qerr.NotFound, "no pilot registered for provider "+name))
		return
	}
	if err := p.SaveDevicesFromProvider(r.Context(), providerToken(r), s.st); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

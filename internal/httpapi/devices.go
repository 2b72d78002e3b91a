package httpapi

import "net/http"

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.st.ListDevices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	provider := pathVar(r, "provider")
	name := pathVar(r, "name")
	device, err := s.st.GetDevice(r.Context(), provider, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

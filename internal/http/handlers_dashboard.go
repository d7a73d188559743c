package http

import "net/http"

// handleStats serves the caller's dashboard aggregates.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.Stats(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

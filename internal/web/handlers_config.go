package web

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Config())
}

type spreadsheetRequest struct {
	SpreadsheetID string `json:"spreadsheetId"`
}

// handleSetSpreadsheetID retargets the sheets backend. A failed reload
// still answers 200 with refreshed=false.
func (s *Server) handleSetSpreadsheetID(w http.ResponseWriter, r *http.Request) {
	var req spreadsheetRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	change, err := s.service.SetSpreadsheetID(r.Context(), req.SpreadsheetID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, change)
}

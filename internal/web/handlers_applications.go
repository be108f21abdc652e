package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/jobtrack/internal/tracker"
	"github.com/JonMunkholm/jobtrack/internal/web/middleware"
)

// handleListApplications returns every application matching the status,
// companyName and title query parameters.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	apps, err := s.service.List(r.Context(), tracker.Filter{
		Status:      tracker.Status(q.Get("status")),
		CompanyName: q.Get("companyName"),
		Title:       q.Get("title"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, apps)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, app)
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var in tracker.ApplicationInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	app, err := s.service.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, app)
}

// handleUpdateApplication replaces every editable field.
func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	var in tracker.ApplicationInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	app, err := s.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, app)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in tracker.StatusInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	app, err := s.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, app)
}

// handlePatchFields writes only the named fields. Names that are not
// editable fields are rejected before anything is written.
func (s *Server) handlePatchFields(w http.ResponseWriter, r *http.Request) {
	var p tracker.FieldPatch
	if err := decodeJSON(w, r, &p, true); err != nil {
		respondError(w, r, err)
		return
	}
	app, err := s.service.PatchFields(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, app)
}

func (s *Server) handleAddInterview(w http.ResponseWriter, r *http.Request) {
	var in tracker.InterviewInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	app, err := s.service.AddInterview(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, app)
}

func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh drops the cache and reloads from the backing store.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Refresh(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	apps, err := s.service.List(r.Context(), tracker.Filter{})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": "Cache refreshed",
		"count":   len(apps),
	})
}

package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/auth"
	"github.com/JonMunkholm/jobtrack/internal/logging"
	"github.com/JonMunkholm/jobtrack/internal/web/middleware"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleLogin exchanges the admin password for a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.password == nil || s.tokens == nil {
		middleware.WriteError(w, middleware.ErrorBody{Message: "Server auth not configured", Status: http.StatusInternalServerError})
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.password.Check(req.Password); err != nil {
		logging.FromContext(r.Context()).Warn("login failed", "ip", r.RemoteAddr)
		middleware.WriteError(w, middleware.ErrorBody{Message: "Invalid password", Status: http.StatusUnauthorized, Code: "AUTH001"})
		return
	}

	token, exp, err := s.tokens.Issue(auth.RoleAdmin)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, loginResponse{Token: token, ExpiresAt: exp})
}

// handleVerify reports whether the bearer token is still valid.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" || s.tokens == nil {
		middleware.WriteJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}
	if _, err := s.tokens.Validate(token); err != nil {
		middleware.WriteJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}
	writeJSON(w, map[string]bool{"valid": true})
}

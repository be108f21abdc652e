package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

// ErrorEnvelope wraps ErrorBody as {"error": {...}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteError writes the JSON error envelope with status.
func WriteError(w http.ResponseWriter, body ErrorBody) {
	WriteJSON(w, body.Status, ErrorEnvelope{Error: body})
}

// WriteJSON encodes v with status. Encoding failures are logged because the
// header is already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

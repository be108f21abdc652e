package web

// errors.go maps service errors to HTTP responses.
//
// Every failure leaves through respondError, which picks the status from
// the error's identity, logs the technical cause with the request id and
// writes the {"error": {...}} envelope. Upstream causes are logged but never
// sent to the client.

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/jobtrack/internal/auth"
	"github.com/JonMunkholm/jobtrack/internal/logging"
	"github.com/JonMunkholm/jobtrack/internal/tracker"
	"github.com/JonMunkholm/jobtrack/internal/web/middleware"
)

// maxBodyBytes caps request bodies. Long text fields top out well below it.
const maxBodyBytes = 1 << 20

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrBadPassword):
		return http.StatusUnauthorized
	case errors.Is(err, tracker.ErrUnsupported):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrTooManyWriters):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the error envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := tracker.MapError(err)

	body := middleware.ErrorBody{Message: msg.Message, Status: status, Code: msg.Code}
	var ve *tracker.ValidationError
	if errors.As(err, &ve) {
		body.Details = ve.Details()
	}
	if tracker.IsUpstream(err) {
		body.Message = err.Error()
	}

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err,
	}
	if cause := errors.Unwrap(err); cause != nil && tracker.IsUpstream(err) {
		attrs = append(attrs, "cause", cause.Error())
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Debug("request rejected", attrs...)
	}

	middleware.WriteError(w, body)
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, middleware.ErrorBody{Message: "Route not found", Status: http.StatusNotFound})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, middleware.ErrorBody{Message: "Method not allowed", Status: http.StatusMethodNotAllowed})
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	middleware.WriteJSON(w, http.StatusOK, v)
}

// decodeJSON reads one JSON value into dst. With strict set, names that dst
// does not declare are rejected. Every failure is a *tracker.ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	var tooBig *http.MaxBytesError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooBig):
		return tracker.NewValidationError("body", "must not exceed "+strconv.FormatInt(tooBig.Limit, 10)+" bytes")
	case errors.Is(err, io.EOF):
		return tracker.NewValidationError("body", "is required")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return tracker.NewValidationError(field, "has the wrong type (got "+typeErr.Value+")")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.TrimPrefix(err.Error(), "json: unknown field ")
		if unquoted, uerr := strconv.Unquote(name); uerr == nil {
			name = unquoted
		}
		return tracker.NewValidationError(name, "is not an editable field")
	default:
		return tracker.NewValidationError("body", "must be valid JSON")
	}
}

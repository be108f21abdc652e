package tracker

// # Error Codes Reference
//
// Every error returned to a client carries a short code so a failure seen in
// the dashboard can be matched to a server log line.
//
//	APP001 - Application not found
//	VAL001 - Validation failed (details list each field)
//	AUTH001 - Authentication required or token invalid
//	CFG001 - Operation not supported by the configured store
//	WRT001 - Too many concurrent writes
//	UPS001 - Remote store quota exceeded ("quota", "rate limit", "429")
//	UPS002 - Remote store denied access ("permission", "403")
//	UPS003 - Remote spreadsheet or range missing ("unable to parse range", "404")
//	UPS004 - Remote store unreachable ("connection refused", "timeout", "deadline")
//	UPS000 - Any other remote store failure
//	ERR000 - Unexpected error

import (
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// upstreamPatterns classify the cause of an UpstreamError. First match wins.
var upstreamPatterns = []errorPattern{
	{
		pattern: "quota",
		msg:     UserMessage{Message: "The remote store is rate limiting requests", Action: "Wait a minute and try again", Code: "UPS001"},
	},
	{
		pattern: "rate limit",
		msg:     UserMessage{Message: "The remote store is rate limiting requests", Action: "Wait a minute and try again", Code: "UPS001"},
	},
	{
		pattern: "429",
		msg:     UserMessage{Message: "The remote store is rate limiting requests", Action: "Wait a minute and try again", Code: "UPS001"},
	},
	{
		pattern: "permission",
		msg:     UserMessage{Message: "The remote store denied access", Action: "Share the spreadsheet with the service account", Code: "UPS002"},
	},
	{
		pattern: "403",
		msg:     UserMessage{Message: "The remote store denied access", Action: "Share the spreadsheet with the service account", Code: "UPS002"},
	},
	{
		pattern: "unable to parse range",
		msg:     UserMessage{Message: "The configured worksheet was not found", Action: "Check the spreadsheet id and sheet name", Code: "UPS003"},
	},
	{
		pattern: "404",
		msg:     UserMessage{Message: "The configured spreadsheet was not found", Action: "Check the spreadsheet id and sheet name", Code: "UPS003"},
	},
	{
		pattern: "connection refused",
		msg:     UserMessage{Message: "Unable to reach the remote store", Action: "Please try again in a few moments", Code: "UPS004"},
	},
	{
		pattern: "timeout",
		msg:     UserMessage{Message: "The remote store did not respond in time", Action: "Please try again", Code: "UPS004"},
	},
	{
		pattern: "deadline",
		msg:     UserMessage{Message: "The remote store did not respond in time", Action: "Please try again", Code: "UPS004"},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a message that is safe to show to users.
// Domain errors are matched by identity; backing-store failures are
// classified by the text of their cause.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve *ValidationError
	var ue *UpstreamError
	switch {
	case errors.Is(err, ErrNotFound):
		return UserMessage{Message: "Application not found", Code: "APP001"}
	case errors.As(err, &ve), errors.Is(err, ErrValidation):
		return UserMessage{Message: "Validation failed", Action: "Correct the listed fields and retry", Code: "VAL001"}
	case errors.Is(err, ErrUnauthorized):
		return UserMessage{Message: "Authentication required", Action: "Log in again", Code: "AUTH001"}
	case errors.Is(err, ErrUnsupported):
		return UserMessage{Message: "This operation is not available for the configured store", Code: "CFG001"}
	case errors.Is(err, ErrTooManyWriters):
		return UserMessage{Message: "The server is busy saving other changes", Action: "Please try again", Code: "WRT001"}
	case errors.As(err, &ue):
		cause := ""
		if ue.Err != nil {
			cause = strings.ToLower(ue.Err.Error())
		}
		for _, ep := range upstreamPatterns {
			if strings.Contains(cause, ep.pattern) {
				return ep.msg
			}
		}
		return UserMessage{Message: "Failed to " + ue.Op + " in remote store", Action: "Please try again", Code: "UPS000"}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

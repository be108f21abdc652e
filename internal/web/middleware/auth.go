package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/jobtrack/internal/auth"
)

// TokenValidator checks a bearer token.
type TokenValidator interface {
	Validate(token string) (auth.Claims, error)
}

type claimsKey struct{}

// ClaimsFromContext returns the session claims stored by BearerAuth.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token.
// Preflight requests pass through so CORS can answer them.
func BearerAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := BearerToken(r)
			if token == "" {
				WriteError(w, ErrorBody{Message: "Authentication required", Status: http.StatusUnauthorized, Code: "AUTH001"})
				return
			}

			claims, err := v.Validate(token)
			if err != nil {
				slog.Warn("auth: rejected token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				WriteError(w, ErrorBody{Message: "Invalid or expired token", Status: http.StatusUnauthorized, Code: "AUTH001"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

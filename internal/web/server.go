// Package web serves the tracker's JSON API and, optionally, the built
// dashboard.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/jobtrack/internal/auth"
	"github.com/JonMunkholm/jobtrack/internal/config"
	"github.com/JonMunkholm/jobtrack/internal/tracker"
	"github.com/JonMunkholm/jobtrack/internal/web/middleware"
)

// Server is the HTTP server for the tracker.
type Server struct {
	service  *tracker.Service
	tokens   *auth.JWTManager
	password *auth.Password
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	limiters []*middleware.RateLimiter
}

// NewServer wires routes and middleware around service.
func NewServer(service *tracker.Service, tokens *auth.JWTManager, password *auth.Password, cfg *config.Config) *Server {
	s := &Server{
		service:  service,
		tokens:   tokens,
		password: password,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.CORS(s.cfg.Security.CORSOrigins))
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		if s.cfg.Rate.Enabled {
			r.With(s.newLimiter(s.cfg.Rate.LoginLimit).Handler).Post("/auth/login", s.handleLogin)
		} else {
			r.Post("/auth/login", s.handleLogin)
		}
		r.Get("/auth/verify", s.handleVerify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(s.tokens))

			r.Route("/applications", func(r chi.Router) {
				r.Get("/", s.handleListApplications)
				r.Post("/", s.handleCreateApplication)
				r.Post("/refresh", s.handleRefresh)
				r.Get("/{id}", s.handleGetApplication)
				r.Put("/{id}", s.handleUpdateApplication)
				r.Delete("/{id}", s.handleDeleteApplication)
				r.Patch("/{id}/status", s.handleUpdateStatus)
				r.Patch("/{id}/fields", s.handlePatchFields)
				r.Post("/{id}/interviews", s.handleAddInterview)
			})

			r.Get("/stats", s.handleStats)
			r.Get("/config", s.handleGetConfig)
			r.Put("/config/spreadsheet-id", s.handleSetSpreadsheetID)
		})

		r.NotFound(routeNotFound)
		r.MethodNotAllowed(methodNotAllowed)
	})

	s.router.NotFound(s.staticHandler(s.cfg.Server.StaticDir))
	s.router.MethodNotAllowed(methodNotAllowed)
}

func (s *Server) newLimiter(perMinute int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

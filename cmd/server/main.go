package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/jobtrack/internal/auth"
	"github.com/JonMunkholm/jobtrack/internal/config"
	"github.com/JonMunkholm/jobtrack/internal/logging"
	"github.com/JonMunkholm/jobtrack/internal/rowstore"
	"github.com/JonMunkholm/jobtrack/internal/rowstore/memory"
	"github.com/JonMunkholm/jobtrack/internal/rowstore/postgres"
	"github.com/JonMunkholm/jobtrack/internal/rowstore/sheets"
	"github.com/JonMunkholm/jobtrack/internal/sheet"
	"github.com/JonMunkholm/jobtrack/internal/store"
	"github.com/JonMunkholm/jobtrack/internal/tracker"
	"github.com/JonMunkholm/jobtrack/internal/web"
)

// backend is the store selected by STORE_BACKEND plus what the service and
// shutdown path need from it.
type backend struct {
	store    tracker.Store
	settings tracker.SettingsStore
	source   tracker.SourceSwitcher
	limiter  *store.WriteLimiter
	close    func()
}

func main() {
	// Load .env file if it exists; real environment variables win
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"backend", cfg.Store.Backend,
		"port", cfg.Server.Port,
		"cache_ttl", cfg.Store.CacheTTL.String(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	be, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer be.close()

	password, err := auth.NewPassword(cfg.Auth.AdminPassword, cfg.Auth.AdminPasswordHash)
	if err != nil {
		slog.Error("invalid admin password configuration", "error", err)
		os.Exit(1)
	}
	tokens := auth.NewJWTManager(cfg.Auth.TokenSecret(), cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	service := tracker.NewService(be.store, tracker.Options{
		Backend:  cfg.Store.Backend,
		Settings: be.settings,
		Source:   be.source,
		Stats:    tracker.StatsOptions{GhostAfter: cfg.Stats.GhostAfter},
	})
	if err := service.RestoreSettings(ctx); err != nil {
		slog.Warn("could not restore saved settings", "error", err)
	}

	server := web.NewServer(service, tokens, password, cfg)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	go service.StartCacheWarmer(jobCtx, cfg.Store.WarmInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Let in-flight remote writes land before the process exits
		if be.limiter != nil && be.limiter.ActiveCount() > 0 {
			slog.Info("waiting for writes to complete", "active", be.limiter.ActiveCount())
			if err := be.limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("writes did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openBackend builds the store for cfg.Store.Backend.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Store.Backend {
	case config.BackendFile:
		fs, err := store.NewFileStore(cfg.Store.DataDir, nil)
		if err != nil {
			return nil, err
		}
		slog.Info("using file store", "dir", cfg.Store.DataDir)
		return &backend{store: fs, close: func() {}}, nil

	case config.BackendSheets:
		remote, err := sheets.New(ctx, sheets.Options{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Sheet:           cfg.Sheets.SheetName,
			Width:           sheet.Width,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using google sheets store", "spreadsheet_id", cfg.Sheets.SpreadsheetID, "sheet", cfg.Sheets.SheetName)
		be := rowBackend(remote, cfg)
		be.source = remote
		be.settings = store.NewSettingsFile(cfg.Store.DataDir)
		return be, nil

	case config.BackendPostgres:
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		remote := postgres.New(pool, cfg.Sheets.SheetName, sheet.Width)
		if err := remote.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		be := rowBackend(remote, cfg)
		be.close = pool.Close
		return be, nil

	case config.BackendMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		return rowBackend(memory.New(cfg.Sheets.SheetName, sheet.Width), cfg), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Store.Backend)
}

func rowBackend(remote rowstore.Store, cfg *config.Config) *backend {
	limiter := store.NewWriteLimiter(cfg.Store.MaxConcurrentWrites, cfg.Store.MaxWriteWait)
	rs := store.NewRowStore(remote, store.Options{
		CacheTTL: cfg.Store.CacheTTL,
		Limiter:  limiter,
	})
	return &backend{store: rs, limiter: limiter, close: func() {}}
}

// openPool connects to Postgres with the configured pool sizing.
func openPool(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

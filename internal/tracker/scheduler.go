package tracker

// scheduler.go keeps the store warm in the background.
//
// Rows edited directly in the spreadsheet are only picked up when the cache
// reloads. The warmer reloads on a fixed interval so those edits surface
// without waiting for the staleness bound, and logs how many applications
// look ghosted after each pass.

import (
	"context"
	"log/slog"
	"time"
)

// StartCacheWarmer reloads the store immediately, then every interval, until
// ctx is cancelled. Failures are logged and retried on the next tick.
func (s *Service) StartCacheWarmer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	slog.Info("cache warmer started", "interval", interval.String())

	s.runWarmJob(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache warmer stopped")
			return
		case <-ticker.C:
			s.runWarmJob(ctx)
		}
	}
}

func (s *Service) runWarmJob(ctx context.Context) {
	start := time.Now()
	if err := s.store.Refresh(ctx); err != nil {
		slog.Error("cache warm failed", "error", err)
		return
	}

	apps, err := s.store.List(ctx)
	if err != nil {
		slog.Error("cache warm failed", "error", err)
		return
	}
	st := ComputeStats(apps, s.now(), s.stats)
	slog.Info("cache warmed",
		"applications", len(apps),
		"likely_ghosted", st.LikelyGhosted.Count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

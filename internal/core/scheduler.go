package core

// scheduler.go runs the export paths on fixed intervals.
//
// Each path gets its own long-running loop. A loop runs once on start and
// then on every tick until its context is cancelled. Failed runs are logged
// and recorded but never stop the loop; the next tick tries again. Ticks that
// arrive while the previous run of the same path is still active are skipped
// by the run limiter.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// StartScheduler blocks running path every interval until ctx is cancelled.
// A non-positive interval disables the path and returns immediately.
func (s *Service) StartScheduler(ctx context.Context, path Path, interval time.Duration) {
	if interval <= 0 {
		slog.Info("export scheduler disabled", "path", path)
		return
	}
	slog.Info("export scheduler started", "path", path, "interval", interval.String())

	ctx = ContextWithTrigger(ctx, TriggerSchedule)

	// Run immediately on startup
	s.runScheduled(ctx, path)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("export scheduler stopped", "path", path)
			return
		case <-ticker.C:
			s.runScheduled(ctx, path)
		}
	}
}

// runScheduled performs one run. Errors are already logged by Run.
func (s *Service) runScheduled(ctx context.Context, path Path) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Run(ctx, path); err != nil && !errors.Is(err, ErrRunInProgress) {
		slog.Debug("scheduled run failed", "path", path, "code", MapError(err).Code)
	}
}

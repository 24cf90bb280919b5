// Package workers holds the long-running maintenance jobs of the worker
// binary.
package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/database"
)

const (
	// DefaultRetention is how long terminal reminders are kept
	DefaultRetention = 30 * 24 * time.Hour
	// DefaultSweepInterval is how often the janitor runs
	DefaultSweepInterval = 6 * time.Hour
)

// Janitor deletes terminal reminders past the retention window
type Janitor struct {
	store     database.ReminderJanitor
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewJanitor creates a retention janitor
func NewJanitor(store database.ReminderJanitor, interval, retention time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Janitor{
		store:     store,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start runs the sweep loop until ctx is cancelled. The first sweep happens
// immediately.
func (j *Janitor) Start(ctx context.Context) error {
	j.logger.Info("retention_janitor_started",
		zap.Duration("interval", j.interval),
		zap.Duration("retention", j.retention),
	)

	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("retention_janitor_stopped")
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)

	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	deleted, err := j.store.DeleteTerminalOlderThan(sweepCtx, cutoff)
	if err != nil {
		j.logger.Error("retention_sweep_failed", zap.Error(err))
		return
	}

	if deleted > 0 {
		j.logger.Info("retention_sweep_completed",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}

package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptPruner deletes audit rows older than a cutoff.
type AttemptPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionManager periodically prunes old login attempts so the
// append-only audit table does not grow without bound.
type RetentionManager struct {
	attempts  AttemptPruner
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
	stopCh    chan struct{}
}

// NewRetentionManager creates a new retention manager. retention is the
// age beyond which rows are deleted; interval is how often to sweep.
func NewRetentionManager(
	attempts AttemptPruner,
	logger *slog.Logger,
	retention time.Duration,
	interval time.Duration,
) *RetentionManager {
	return &RetentionManager{
		attempts:  attempts,
		logger:    logger,
		retention: retention,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic pruning task
func (rm *RetentionManager) Start(ctx context.Context) {
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	rm.runPrune(ctx)

	for {
		select {
		case <-ticker.C:
			rm.runPrune(ctx)
		case <-rm.stopCh:
			rm.logger.Info("retention manager stopped")
			return
		case <-ctx.Done():
			rm.logger.Info("retention manager context cancelled")
			return
		}
	}
}

// runPrune deletes login attempts older than the retention window
func (rm *RetentionManager) runPrune(ctx context.Context) {
	pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-rm.retention)
	rowsDeleted, err := rm.attempts.DeleteOlderThan(pruneCtx, cutoff)
	if err != nil {
		rm.logger.Error("failed to prune login attempts", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		rm.logger.Info("login attempt retention sweep completed",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Time("cutoff", cutoff))
	}
}

// Stop signals the retention manager to stop
func (rm *RetentionManager) Stop() {
	close(rm.stopCh)
}

// Package ingestrunner triggers periodic full ingestion runs.
package ingestrunner

import (
	"context"
	"log/slog"
	"time"

	"vendorgrid/internal/ingest"
)

// Run starts a full ingestion job every interval. A tick is skipped when
// a full run is still active, so a slow cycle never stacks jobs. Blocks
// until ctx is cancelled; intervals <= 0 disable the runner.
func Run(ctx context.Context, manager *ingest.Manager, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if manager.HasActiveFullRun() {
				logger.Debug("skipping scheduled ingestion, full run still active")
				continue
			}
			job := manager.StartFullJob(ctx)
			logger.Info("scheduled ingestion started", "job_id", job.ID)
		}
	}
}

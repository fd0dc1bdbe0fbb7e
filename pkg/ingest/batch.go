// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/kraklabs/hybridrag/pkg/dbmeta"
	"github.com/kraklabs/hybridrag/pkg/monitor"
)

// runBatch implements §4.4.3: loop while the pending list is non-empty
// and no shutdown signal has arrived, throttling batch size against live
// load and rewriting the pending list after every batch so a crash loses
// at most the in-flight batch.
func (w *Watcher) runBatch(ctx context.Context) error {
	pendingPath := w.deps.Paths.PendingPath(w.db)
	totalProcessed := 0
	totalErrors := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.checkpointPause(ctx); err != nil {
			return err
		}

		pending, err := readLines(pendingPath)
		if err != nil {
			return fmt.Errorf("ingest: read pending list: %w", err)
		}
		if len(pending) == 0 {
			break
		}

		level, err := w.waitForNonCriticalLoad(ctx)
		if err != nil {
			return err
		}
		batchSize := w.batchSizeFor(level)
		if batchSize > len(pending) {
			batchSize = len(pending)
		}
		batch := pending[:batchSize]
		remaining := pending[batchSize:]

		for _, path := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome := w.processFile(ctx, path, true)
			totalProcessed++
			if outcome == outcomeError {
				totalErrors++
			}
		}

		if err := writeLinesAtomic(pendingPath, remaining); err != nil {
			return fmt.Errorf("ingest: rewrite pending list: %w", err)
		}

		if err := w.deps.Registry.UpdateLastSync(w.db); err != nil {
			w.logger.Warn("failed to update last_sync_at", "error", err)
		}
		monitor.RecordBatch(w.db, len(remaining))

		debug.FreeOSMemory()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.SleepBetweenBatches):
		}
	}

	if err := removePendingList(pendingPath); err != nil {
		w.logger.Warn("failed to remove completed pending list", "error", err)
	}

	if totalErrors > 0 && w.deps.Alerts != nil {
		if _, err := w.deps.Alerts.IngestionPartial(w.db, totalProcessed, totalErrors); err != nil {
			w.logger.Warn("failed to record ingestion_partial alert", "error", err)
		}
	}

	if _, err := w.meta.RecordIngestion(w.rec.SourceFolder, dbmeta.ModeBatch, totalProcessed, totalErrors, true, "batch mode completion"); err != nil {
		w.logger.Warn("failed to record ingestion history", "error", err)
	}

	return nil
}

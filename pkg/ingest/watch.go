// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/hybridrag/pkg/dbmeta"
	"github.com/kraklabs/hybridrag/pkg/monitor"
)

// runWatch implements §4.4.4: establish a baseline (so files already
// handled by batch mode aren't re-reported), then loop detecting and
// processing changes until ctx is cancelled.
func (w *Watcher) runWatch(ctx context.Context) error {
	if err := w.detector.Baseline(); err != nil {
		return fmt.Errorf("ingest: watch baseline scan: %w", err)
	}

	wake := w.startFastWakeHint(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.checkpointPause(ctx); err != nil {
			return err
		}

		scanStart := time.Now()
		changes, err := w.detector.DetectChanges()
		if err != nil {
			return fmt.Errorf("ingest: detect changes: %w", err)
		}
		monitor.RecordScan(time.Since(scanStart).Seconds())
		monitor.RecordChanges(len(changes.New), len(changes.Modified), len(changes.Deleted))

		toProcess := append(append([]string(nil), changes.New...), changes.Modified...)

		if len(toProcess) > 0 {
			if len(toProcess) >= w.cfg.BatchSizeNormal {
				if _, err := w.waitForNonCriticalLoad(ctx); err != nil {
					return err
				}
			}

			cycleStart := time.Now()
			errs := 0
			for i := 0; i < len(toProcess); i += w.cfg.BatchSizeNormal {
				end := i + w.cfg.BatchSizeNormal
				if end > len(toProcess) {
					end = len(toProcess)
				}
				for _, path := range toProcess[i:end] {
					if err := ctx.Err(); err != nil {
						return err
					}
					if w.processFile(ctx, path, false) == outcomeError {
						errs++
					}
				}
				debug.FreeOSMemory()
				if err := w.deps.Registry.UpdateLastSync(w.db); err != nil {
					w.logger.Warn("failed to update last_sync_at", "error", err)
				}
			}

			if w.perf != nil {
				if warn := w.perf.Record(len(toProcess), time.Since(cycleStart).Seconds()); warn != nil {
					w.reportPerfWarning(*warn)
				}
			}
			if errs > 0 && w.deps.Alerts != nil {
				if _, err := w.deps.Alerts.IngestionPartial(w.db, len(toProcess), errs); err != nil {
					w.logger.Warn("failed to record ingestion_partial alert", "error", err)
				}
			}
			if _, err := w.meta.RecordIngestion(w.rec.SourceFolder, dbmeta.ModeWatch, len(toProcess), errs, true, ""); err != nil {
				w.logger.Warn("failed to record ingestion history", "error", err)
			}
		}

		if w.bumpStorageCheckCounter() && w.rec.Backend.Kind == "json" {
			w.checkStorage()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.WatchInterval):
		case <-wake:
		}
	}
}

// reportPerfWarning surfaces a degradation Warning as the watcher_error
// alert of severity warning that §4.5.3 specifies.
func (w *Watcher) reportPerfWarning(warn monitor.Warning) {
	if w.deps.Alerts == nil {
		return
	}
	if _, err := w.deps.Alerts.PerformanceDegraded(w.db, warn); err != nil {
		w.logger.Warn("failed to record performance degradation alert", "error", err)
	}
}

// checkStorage runs the JSON-storage-size monitor (§4.4.7) and turns any
// findings into alerts; these never halt ingestion.
func (w *Watcher) checkStorage() {
	fileWarnMB := w.rec.Thresholds.FileWarnMB
	totalWarnMB := w.rec.Thresholds.TotalWarnMB
	warnings, err := monitor.CheckStorageSize(w.rec.Path, fileWarnMB, totalWarnMB)
	if err != nil {
		w.logger.Warn("storage size check failed", "error", err)
		return
	}
	for _, warning := range warnings {
		w.logger.Warn("storage size warning", "message", warning.Message, "size_mb", warning.SizeMB)
		if w.deps.Alerts == nil {
			continue
		}
		monitor.RecordAlert(warning.Severity)
		if _, err := w.deps.Alerts.StorageSizeWarning(w.db, warning.Message, warning.Severity, warning.SizeMB); err != nil {
			w.logger.Warn("failed to record storage warning alert", "error", err)
		}
	}
}

// startFastWakeHint sets up a best-effort fsnotify watch on the source
// folder's top-level directory to interrupt the watch-interval sleep
// early when filesystem activity is observed. The authoritative change
// set always comes from the next DetectChanges poll; a missed or noisy
// fsnotify event changes latency, never correctness (SPEC_FULL.md
// section B). Returns nil if fsnotify can't be set up.
func (w *Watcher) startFastWakeHint(ctx context.Context) <-chan struct{} {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	if err := fsw.Add(w.rec.SourceFolder); err != nil {
		_ = fsw.Close()
		return nil
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-fsw.Events:
				if !ok {
					return
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return wake
}

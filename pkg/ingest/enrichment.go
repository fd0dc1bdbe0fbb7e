// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Implements §4.4.8: the enrichment worker. Fast-path inserts (made
// during batch mode, see processFile's useFast branch) only embed a
// document; they queue its path in enrichment_pending/<db>.txt so a
// separate, standalone job can later run the full insert pipeline over
// it. This file is that job — invoked by the CLI, not by the watcher
// daemon. It takes the database's lock, as the watcher and batch
// controller do, and returns ErrLockContention while either holds it.
package ingest

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/kraklabs/hybridrag/pkg/changedetect"
	"github.com/kraklabs/hybridrag/pkg/engine"
	"github.com/kraklabs/hybridrag/pkg/lock"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// gcEvery is how many enrichment items run between debug.FreeOSMemory
// hints, matching the periodic GC the watcher/batch loops do between
// chunks.
const gcEvery = 20

// EnrichmentOptions configures one RunEnrichment call.
type EnrichmentOptions struct {
	Limit  int // 0 means no limit
	DryRun bool
}

// EnrichmentResult summarizes one RunEnrichment call.
type EnrichmentResult struct {
	Considered int
	Enriched   int
	Tombstoned int // source file vanished before enrichment ran
	Failed     int
	Remaining  int // still pending after this run (e.g. --limit cut it short)
}

// EnrichmentStatus reports queue depth without processing anything,
// backing the CLI's `--status` flag.
func EnrichmentStatus(deps Deps, db string) (pending, done int, err error) {
	p, err := readLines(deps.Paths.EnrichPendingPath(db))
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: read enrichment-pending list: %w", err)
	}
	d, err := readLines(deps.Paths.EnrichDonePath(db))
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: read enrichment-done list: %w", err)
	}
	return len(p), len(d), nil
}

// RunEnrichment processes the enrichment-pending backlog for db: for
// each path not already marked done, it runs the engine's full insert
// (re-embedding plus whatever additional processing the fast path
// skipped), appends the path to enrichment_done on success, and leaves
// failures in place to retry on the next run. A path whose source file
// has since vanished is tombstoned (marked done without enrichment)
// since there is nothing left to enrich.
func RunEnrichment(ctx context.Context, db string, rec *registry.DatabaseRecord, deps Deps, opts EnrichmentOptions) (EnrichmentResult, error) {
	logger := deps.logger().With("component", "enrichment", "database", db)

	pendingPath := deps.Paths.EnrichPendingPath(db)
	donePath := deps.Paths.EnrichDonePath(db)

	pending, err := readLines(pendingPath)
	if err != nil {
		return EnrichmentResult{}, fmt.Errorf("ingest: read enrichment-pending list: %w", err)
	}
	done, err := readLines(donePath)
	if err != nil {
		return EnrichmentResult{}, fmt.Errorf("ingest: read enrichment-done list: %w", err)
	}

	doneSet := make(map[string]bool, len(done))
	for _, p := range done {
		doneSet[p] = true
	}

	todo := dedupePreserveOrder(pending, doneSet)

	var res EnrichmentResult
	var stillPending []string

	lk, err := lock.New(deps.Paths.PIDsDir, db)
	if err != nil {
		return EnrichmentResult{}, fmt.Errorf("ingest: build lock: %w", err)
	}
	ok, err := lk.TryAcquire()
	if err != nil {
		return EnrichmentResult{}, fmt.Errorf("ingest: acquire lock: %w", err)
	}
	if !ok {
		return EnrichmentResult{}, ErrLockContention
	}
	defer lk.Release()

	eng, err := OpenEngine(ctx, rec)
	if err != nil {
		return EnrichmentResult{}, fmt.Errorf("ingest: open engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("error closing engine", "error", err)
		}
	}()

	for i, path := range todo {
		if err := ctx.Err(); err != nil {
			stillPending = append(stillPending, todo[i:]...)
			break
		}
		if opts.Limit > 0 && res.Considered >= opts.Limit {
			stillPending = append(stillPending, todo[i:]...)
			break
		}
		res.Considered++

		if _, statErr := os.Stat(path); statErr != nil {
			logger.Info("enrichment source vanished, tombstoning", "path", path)
			res.Tombstoned++
			if !opts.DryRun {
				if err := appendLine(donePath, path); err != nil {
					logger.Warn("failed to append tombstoned path to done list", "path", path, "error", err)
				}
			}
			continue
		}

		if opts.DryRun {
			res.Enriched++
			continue
		}

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warn("failed to read enrichment source", "path", path, "error", readErr)
			res.Failed++
			stillPending = append(stillPending, path)
			continue
		}

		fp := changedetect.Fingerprint(raw)
		if status, ok, lookupErr := eng.DocStatusLookup(ctx, fp); lookupErr != nil {
			logger.Warn("doc-status lookup failed, proceeding with insert", "path", path, "error", lookupErr)
		} else if ok && status == engine.StatusDone {
			logger.Info("already done per engine doc-status, skipping insert", "path", path)
			res.Enriched++
			if err := appendLine(donePath, path); err != nil {
				logger.Warn("failed to append path to done list", "path", path, "error", err)
			}
			continue
		}

		level := pollLoadLevelStandalone(deps, db, rec)
		switch level {
		case monitor.LoadCritical:
			select {
			case <-ctx.Done():
				stillPending = append(stillPending, todo[i:]...)
				return res.finish(stillPending, pendingPath, logger), ctx.Err()
			case <-time.After(30 * time.Second):
			}
		case monitor.LoadHigh:
			select {
			case <-ctx.Done():
				stillPending = append(stillPending, todo[i:]...)
				return res.finish(stillPending, pendingPath, logger), ctx.Err()
			case <-time.After(5 * time.Second):
			}
		}

		insertStart := time.Now()
		ok, insertErr := eng.Insert(ctx, raw, path)
		monitor.RecordInsert(insertErr == nil && ok, time.Since(insertStart).Seconds())
		if insertErr != nil || !ok {
			reason := "engine reported failure without error"
			if insertErr != nil {
				reason = insertErr.Error()
			}
			logger.Warn("enrichment insert failed, will retry next run", "path", path, "error", reason)
			res.Failed++
			stillPending = append(stillPending, path)
			if deps.Alerts != nil {
				if _, err := deps.Alerts.IngestionFailed(db, path, reason); err != nil {
					logger.Warn("failed to record ingestion_failed alert", "error", err)
				} else {
					monitor.RecordAlert(monitor.SeverityError)
				}
			}
			continue
		}

		res.Enriched++
		if err := appendLine(donePath, path); err != nil {
			logger.Warn("failed to append enriched path to done list", "path", path, "error", err)
		}

		if res.Considered%gcEvery == 0 {
			debug.FreeOSMemory()
		}
	}

	if opts.DryRun {
		res.Remaining = len(todo) - res.Enriched - res.Tombstoned
		return res, nil
	}
	return res.finish(stillPending, pendingPath, logger), nil
}

// finish compacts the pending list down to whatever wasn't resolved this
// run (§4.4.8's end-of-run pending-list compaction) and fills in
// EnrichmentResult.Remaining. Never called for a dry run, which must not
// mutate the pending list at all.
func (res EnrichmentResult) finish(stillPending []string, pendingPath string, logger interface {
	Warn(msg string, args ...any)
}) EnrichmentResult {
	res.Remaining = len(stillPending)
	if err := writeLinesAtomic(pendingPath, stillPending); err != nil {
		logger.Warn("failed to compact enrichment-pending list", "error", err)
	}
	return res
}

// dedupePreserveOrder returns pending with duplicates and already-done
// entries removed, keeping first-seen order.
func dedupePreserveOrder(pending []string, done map[string]bool) []string {
	seen := make(map[string]bool, len(pending))
	out := make([]string, 0, len(pending))
	for _, p := range pending {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] || done[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// pollLoadLevelStandalone mirrors (*Watcher).pollLoadLevel for the
// enrichment worker, which runs without a Watcher instance.
func pollLoadLevelStandalone(deps Deps, db string, rec *registry.DatabaseRecord) monitor.LoadLevel {
	if deps.Sampler == nil {
		return monitor.LoadNormal
	}
	cpuPct, memPct, err := deps.Sampler.Sample()
	if err != nil {
		return monitor.LoadNormal
	}
	level := monitor.Classify(cpuPct, memPct, ConfigFromRecord(rec).LoadThresholds)
	monitor.RecordLoadLevel(db, level)
	return level
}

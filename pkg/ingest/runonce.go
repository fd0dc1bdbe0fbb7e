// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Implements the one-shot batch ingestion path behind the `ingest` and
// `sync` CLI commands (§6.3): discover-then-batch without ever entering
// watch mode, as opposed to the long-running daemon driven by Run.
package ingest

import (
	"context"
	"fmt"

	"github.com/kraklabs/hybridrag/pkg/registry"
)

// RunOnce acquires db's lock, runs discovery (unless a resumable pending
// list already exists and fresh is false), then batch mode to
// completion, and releases the lock and engine before returning. fresh
// discards any existing pending list first, forcing a full rescan of the
// source folder; content-level dedup (seeded from the engine's doc-status
// store) still skips files already ingested unchanged, so "fresh" means
// "rescan", not "re-embed everything from zero".
func RunOnce(ctx context.Context, db string, rec *registry.DatabaseRecord, deps Deps, fresh bool) (Stats, error) {
	w, err := New(db, rec, deps)
	if err != nil {
		return Stats{}, err
	}

	ok, err := w.lk.TryAcquire()
	if err != nil {
		return Stats{}, fmt.Errorf("ingest: acquire lock: %w", err)
	}
	if !ok {
		return Stats{}, ErrLockContention
	}
	defer w.lk.Release()

	w.setState(StateStarting)
	defer func() {
		w.releaseEngine()
		w.setState(StateDown)
	}()

	pendingPath := deps.Paths.PendingPath(db)
	if fresh {
		if err := removePendingList(pendingPath); err != nil {
			return w.stats.Snapshot(), fmt.Errorf("ingest: clear pending list: %w", err)
		}
	}

	if pendingListExists(pendingPath) {
		w.setState(StateResumingBatch)
	} else {
		w.setState(StateDiscovering)
		n, err := w.discover(ctx)
		if err != nil {
			return w.stats.Snapshot(), fmt.Errorf("ingest: discovery: %w", err)
		}
		w.logger.Info("discovery complete", "files", n)
	}

	w.setState(StateBatching)
	if err := w.runBatch(ctx); err != nil {
		if ctx.Err() == nil && w.deps.Alerts != nil {
			_, _ = w.deps.Alerts.WatcherError(db, err.Error())
		}
		return w.stats.Snapshot(), fmt.Errorf("ingest: batch: %w", err)
	}

	return w.stats.Snapshot(), nil
}

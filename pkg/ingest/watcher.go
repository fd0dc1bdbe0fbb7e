// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/hybridrag/pkg/changedetect"
	"github.com/kraklabs/hybridrag/pkg/dbmeta"
	"github.com/kraklabs/hybridrag/pkg/engine"
	"github.com/kraklabs/hybridrag/pkg/lock"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// ErrLockContention is returned by Run when another live process already
// holds the database's lock (§4.2, exit code 3 per §6.3/§7).
var ErrLockContention = errors.New("ingest: lock contention")

// Watcher drives the per-database state machine (§4.4.9): startup
// decision, discovery, batch mode, watch mode, and shutdown. One Watcher
// instance owns exactly one database for the life of a process.
type Watcher struct {
	db   string
	rec  *registry.DatabaseRecord
	deps Deps
	cfg  Config

	logger *slog.Logger

	lk *lock.Lock

	mu  sync.Mutex
	eng engine.Engine

	dedup    *changedetect.BoundedSet
	detector *changedetect.Detector
	perf     *monitor.PerfTracker
	meta     *dbmeta.Metadata

	stateMu sync.Mutex
	state   State

	stats Stats

	batchesSinceStorageCheck int32
}

// New constructs a Watcher for db, given its registry record.
func New(db string, rec *registry.DatabaseRecord, deps Deps) (*Watcher, error) {
	lk, err := lock.New(deps.Paths.PIDsDir, db)
	if err != nil {
		return nil, fmt.Errorf("ingest: build lock: %w", err)
	}

	m, err := dbmeta.Open(rec.Path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open metadata: %w", err)
	}

	filters := changedetect.Filters{
		Recursive:     rec.Recursive,
		Extensions:    rec.FileExtensions,
		SpecstoryOnly: rec.SourceType == registry.SourceSpecstory,
	}

	w := &Watcher{
		db:       db,
		rec:      rec,
		deps:     deps,
		cfg:      ConfigFromRecord(rec),
		logger:   deps.logger().With("component", "ingest", "database", db),
		lk:       lk,
		dedup:    changedetect.NewBoundedSet(changedetect.DefaultBoundedSetCapacity),
		detector: changedetect.New(rec.SourceFolder, filters),
		perf:     monitor.NewPerfTracker(monitor.DefaultWindowSize, rec.Thresholds.PerfDegradationPct),
		meta:     m,
		state:    StateDown,
	}
	return w, nil
}

// State reports the current state-machine node.
func (w *Watcher) State() State {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.stateMu.Lock()
	w.state = s
	w.stateMu.Unlock()
}

// Stats returns a snapshot of the in-process session counters.
func (w *Watcher) Stats() Stats {
	return w.stats.Snapshot()
}

// Run acquires the database lock and drives the state machine to
// completion: startup decision (§4.4.1), whichever of resume-batch,
// discover+batch, or watch mode applies, then watch mode's self-loop
// until ctx is cancelled (§4.4.9). It always returns with the lock
// released and the engine closed.
func (w *Watcher) Run(ctx context.Context) error {
	ok, err := w.lk.TryAcquire()
	if err != nil {
		return fmt.Errorf("ingest: acquire lock: %w", err)
	}
	if !ok {
		return ErrLockContention
	}
	defer w.lk.Release()

	w.setState(StateStarting)
	w.logger.Info("watcher starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.runStateMachine(gctx)
	})

	err = g.Wait()

	w.setState(StateShuttingDown)
	w.releaseEngine()
	w.setState(StateDown)
	w.logger.Info("watcher stopped", "ingested", w.stats.Snapshot().Ingested, "errors", w.stats.Snapshot().Errors)

	if ctx.Err() != nil {
		// The caller asked us to stop (SIGTERM/SIGINT cancellation, or a
		// test deadline); any terminal error derived from that is expected
		// shutdown, not a failure.
		return nil
	}
	return err
}

// runStateMachine implements the startup decision tree of §4.4.1 and the
// transitions of §4.4.9.
func (w *Watcher) runStateMachine(ctx context.Context) error {
	pendingPath := w.deps.Paths.PendingPath(w.db)

	if pendingListExists(pendingPath) {
		w.setState(StateResumingBatch)
		w.logger.Info("resuming batch mode from existing pending list")
	} else {
		eng, err := w.engineInstance(ctx)
		if err != nil {
			return fmt.Errorf("ingest: open engine: %w", err)
		}
		count, err := eng.DocumentCount(ctx)
		if err != nil {
			return fmt.Errorf("ingest: document count: %w", err)
		}

		if count == 0 {
			w.setState(StateDiscovering)
			n, err := w.discover(ctx)
			if err != nil {
				return fmt.Errorf("ingest: discovery: %w", err)
			}
			w.logger.Info("discovery complete", "files", n)
			w.setState(StateBatching)
		} else {
			w.setState(StateWatching)
			return w.runWatch(ctx)
		}
	}

	if w.State() == StateResumingBatch || w.State() == StateBatching {
		if err := w.runBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			w.logger.Error("batch mode failed", "error", err)
			if w.deps.Alerts != nil {
				_, _ = w.deps.Alerts.WatcherError(w.db, err.Error())
			}
			w.releaseEngine()
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	w.setState(StateWatching)
	return w.runWatch(ctx)
}

// engineInstance lazily opens the engine on first use, per §4.4's "the
// same engine instance (lazy-initialized on first use)".
func (w *Watcher) engineInstance(ctx context.Context) (engine.Engine, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.eng != nil {
		return w.eng, nil
	}
	eng, err := OpenEngine(ctx, w.rec)
	if err != nil {
		return nil, err
	}
	w.eng = eng

	if err := w.seedDedupSet(ctx, eng); err != nil {
		w.logger.Warn("failed to seed dedup set from engine doc-status store", "error", err)
	}
	return eng, nil
}

// releaseEngine closes and forgets the engine instance, per §4.4.10's
// "the engine instance is released to free memory" on batch failure, and
// per §5's shutdown shared-resource rule.
func (w *Watcher) releaseEngine() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.eng == nil {
		return
	}
	if err := w.eng.Close(); err != nil {
		w.logger.Warn("error closing engine", "error", err)
	}
	w.eng = nil
}

// seedDedupSet implements §4.4.5's "seeded at startup by scanning the
// engine's doc-status store for entries keyed by doc-<md5> and extracting
// the trailing hash". The bundled reference engines key status entries
// directly by fingerprint (no doc- prefix); either shape is accepted.
func (w *Watcher) seedDedupSet(ctx context.Context, eng engine.Engine) error {
	keys, err := eng.ListDocStatusKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		w.dedup.Add(trimDocKeyPrefix(k))
	}
	return nil
}

const docKeyPrefix = "doc-"

func trimDocKeyPrefix(key string) string {
	if len(key) > len(docKeyPrefix) && key[:len(docKeyPrefix)] == docKeyPrefix {
		return key[len(docKeyPrefix):]
	}
	return key
}

// bumpStorageCheckCounter counts one watch cycle toward the storage-size
// check cadence and reports true, resetting the count, once every
// Config.StorageCheckEvery calls. The counter is atomic, so no dedicated
// mutex is needed.
func (w *Watcher) bumpStorageCheckCounter() bool {
	n := atomic.AddInt32(&w.batchesSinceStorageCheck, 1)
	if int(n) >= w.cfg.StorageCheckEvery {
		atomic.StoreInt32(&w.batchesSinceStorageCheck, 0)
		return true
	}
	return false
}

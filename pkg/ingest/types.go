// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package ingest implements the ingestion engine: the watcher daemon,
// batch controller, and enrichment worker. It is the scheduler —
// discovery, batch mode, watch mode, load-adaptive throttling, and
// crash-safe progress files all live here, wired against pkg/registry,
// pkg/lock, pkg/changedetect, pkg/engine, and pkg/monitor.
//
// The loop/select-on-cancellation shape is grounded on cuemby-warren's
// pkg/scheduler/scheduler.go (a ticker driving a single loop selecting on
// a stop signal), translated from a stop channel to a context.Context
// since every suspension point here must also observe SIGTERM/SIGINT.
package ingest

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// State is one node of the per-database state machine (§4.4.9).
type State string

const (
	StateDown          State = "down"
	StateStarting      State = "starting"
	StateResumingBatch State = "resuming_batch"
	StateDiscovering   State = "discovering"
	StateBatching      State = "batching"
	StateWatching      State = "watching"
	StateShuttingDown  State = "shutting_down"
)

// Stats is the in-process WatcherSessionState named in §3: counters are
// never persisted, only held for the life of the daemon.
type Stats struct {
	mu                sync.Mutex
	Ingested          int
	DuplicatesSkipped int
	Errors            int
	LastError         string
}

func (s *Stats) incIngested() {
	s.mu.Lock()
	s.Ingested++
	s.mu.Unlock()
}

func (s *Stats) incDuplicate() {
	s.mu.Lock()
	s.DuplicatesSkipped++
	s.mu.Unlock()
}

func (s *Stats) incError(msg string) {
	s.mu.Lock()
	s.Errors++
	s.LastError = msg
	s.mu.Unlock()
}

// Snapshot returns a copy safe to hand to a caller without further locking.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Ingested: s.Ingested, DuplicatesSkipped: s.DuplicatesSkipped, Errors: s.Errors, LastError: s.LastError}
}

// Config carries the ingestion loop's tunables: batch sizes, sleep/backoff
// timings, watch interval, and load-classification thresholds, defaulted
// by DefaultConfig and overridden per-database from the registry record
// where applicable.
type Config struct {
	BatchSizeNormal     int
	BatchSizeLow        int
	SleepBetweenBatches time.Duration
	CriticalBackoff     time.Duration
	WatchInterval       time.Duration
	StorageCheckEvery   int // watch-mode batches between storage-size checks
	LoadThresholds      monitor.LoadThresholds
}

// DefaultConfig returns the baseline batch/backoff/watch/load tunables.
func DefaultConfig() Config {
	return Config{
		BatchSizeNormal:     10,
		BatchSizeLow:        2,
		SleepBetweenBatches: 2 * time.Second,
		CriticalBackoff:     30 * time.Second,
		WatchInterval:       30 * time.Second,
		StorageCheckEvery:   5,
		LoadThresholds:      monitor.DefaultLoadThresholds(),
	}
}

// ConfigFromRecord builds a Config from a registry record, applying
// DefaultConfig for anything the record leaves at its zero value.
func ConfigFromRecord(rec *registry.DatabaseRecord) Config {
	cfg := DefaultConfig()
	if rec.WatchIntervalSec > 0 {
		cfg.WatchInterval = time.Duration(rec.WatchIntervalSec) * time.Second
	}
	return cfg
}

// Deps bundles the per-process collaborators a Watcher needs. One Deps
// is typically shared across every database's Watcher in a process.
type Deps struct {
	Registry *registry.Registry
	Paths    *registry.StatePaths
	Alerts   *monitor.AlertManager
	Sampler  monitor.LoadSampler
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kraklabs/hybridrag/pkg/changedetect"
	"github.com/kraklabs/hybridrag/pkg/engine"
	"github.com/kraklabs/hybridrag/pkg/monitor"
)

// fileOutcome classifies what processFile did with one path, used by
// batch/watch mode to roll up per-cycle counts for alerts and history.
type fileOutcome int

const (
	outcomeIngested fileOutcome = iota
	outcomeDuplicate
	outcomeSkippedEmpty
	outcomeError
)

// processFile implements the shared routine of §4.4.5. preferFast
// requests the engine's embed-only path when the engine offers it (used
// by batch mode); watch mode always passes preferFast=false to run the
// full pipeline.
func (w *Watcher) processFile(ctx context.Context, path string, preferFast bool) fileOutcome {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		w.stats.incError("not a readable regular file: " + path)
		w.alertIngestionFailed(path, "not a readable regular file")
		return outcomeError
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		w.stats.incError(err.Error())
		w.alertIngestionFailed(path, err.Error())
		return outcomeError
	}

	content := lossyUTF8(raw)
	if strings.TrimSpace(content) == "" {
		return outcomeSkippedEmpty
	}

	fp := changedetect.Fingerprint([]byte(content))
	if w.dedup.Contains(fp) {
		w.stats.incDuplicate()
		return outcomeDuplicate
	}

	eng, err := w.engineInstance(ctx)
	if err != nil {
		w.stats.incError(err.Error())
		w.alertIngestionFailed(path, err.Error())
		return outcomeError
	}

	useFast := preferFast && engine.SupportsInsertFast(eng)

	insertStart := time.Now()
	var ok bool
	if useFast {
		ok, err = eng.InsertFast(ctx, []byte(content), path)
	} else {
		ok, err = eng.Insert(ctx, []byte(content), path)
	}
	monitor.RecordInsert(err == nil && ok, time.Since(insertStart).Seconds())
	if err != nil {
		w.stats.incError(err.Error())
		w.alertIngestionFailed(path, err.Error())
		return outcomeError
	}
	if !ok {
		w.stats.incError("engine reported failure without error")
		w.alertIngestionFailed(path, "engine reported failure without error")
		return outcomeError
	}

	w.dedup.Add(fp)
	w.stats.incIngested()

	if useFast {
		if err := appendLine(w.deps.Paths.EnrichPendingPath(w.db), path); err != nil {
			w.logger.Warn("failed to append to enrichment-pending list", "path", path, "error", err)
		}
	}
	return outcomeIngested
}

func (w *Watcher) alertIngestionFailed(path, reason string) {
	if w.deps.Alerts == nil {
		return
	}
	if _, err := w.deps.Alerts.IngestionFailed(w.db, path, reason); err != nil {
		w.logger.Warn("failed to record ingestion_failed alert", "error", err)
		return
	}
	monitor.RecordAlert(monitor.SeverityError)
}

// lossyUTF8 decodes raw as UTF-8 with the replacement character standing
// in for invalid byte sequences, per §4.4.5 step 2.
func lossyUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var sb strings.Builder
	sb.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		sb.WriteRune(r)
		raw = raw[size:]
	}
	return sb.String()
}

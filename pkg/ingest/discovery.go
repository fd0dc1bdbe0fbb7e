// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/kraklabs/hybridrag/pkg/monitor"
)

// discover implements §4.4.2: a full scan of the source folder with the
// same filters the change detector applies, writing every discovered
// path to the per-database pending list. Reusing w.detector's first
// DetectChanges call for this is correct because §4.3 defines the first
// call as exactly this: "the baseline pass ... reported as new".
func (w *Watcher) discover(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	changes, err := w.detector.DetectChanges()
	if err != nil {
		return 0, fmt.Errorf("ingest: scan source folder: %w", err)
	}

	paths := append([]string(nil), changes.New...)
	sort.Strings(paths)

	if err := writeLinesAtomic(w.deps.Paths.PendingPath(w.db), paths); err != nil {
		return 0, fmt.Errorf("ingest: write pending list: %w", err)
	}

	monitor.RecordChanges(len(changes.New), len(changes.Modified), len(changes.Deleted))

	if err := w.meta.AddSourceFolder(w.rec.SourceFolder, w.rec.Recursive); err != nil {
		w.logger.Warn("failed to record source folder in metadata", "error", err)
	}

	return len(paths), nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Implements the watcher pause/resume IPC: a `watch pause <db>` CLI
// command writes the `.pause` file, the daemon observes it at its next
// suspension point, stops starting new files, writes `.pause_ack`, and
// blocks until `.pause` is removed.
package ingest

import (
	"context"
	"os"
	"time"
)

// pauseRequested reports whether <state>/watcher_control/<db>.pause
// exists.
func (w *Watcher) pauseRequested() bool {
	_, err := os.Stat(w.deps.Paths.PausePath(w.db))
	return err == nil
}

// acknowledgePause writes the .pause_ack file.
func (w *Watcher) acknowledgePause() error {
	return os.WriteFile(w.deps.Paths.PauseAckPath(w.db), []byte("paused"), 0o644)
}

func (w *Watcher) clearPauseAck() {
	_ = os.Remove(w.deps.Paths.PauseAckPath(w.db))
}

// checkpointPause is called at each suspension point named in §5 (between
// batches, the critical-load backoff, the watch-interval sleep). If a
// pause signal is present it acknowledges it and blocks, polling until
// the signal is removed or ctx is cancelled.
func (w *Watcher) checkpointPause(ctx context.Context) error {
	if !w.pauseRequested() {
		return nil
	}

	w.logger.Info("pause signal observed, suspending before next file")
	if err := w.acknowledgePause(); err != nil {
		w.logger.Warn("failed to write pause acknowledgment", "error", err)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for w.pauseRequested() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	w.logger.Info("pause signal cleared, resuming")
	w.clearPauseAck()
	return nil
}

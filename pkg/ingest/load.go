// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"time"

	"github.com/kraklabs/hybridrag/pkg/monitor"
)

// pollLoadLevel implements §4.4.6: polled immediately before each batch,
// never mid-batch. If no sampler is configured (e.g. in tests), load is
// always reported normal.
func (w *Watcher) pollLoadLevel() monitor.LoadLevel {
	if w.deps.Sampler == nil {
		return monitor.LoadNormal
	}
	cpuPct, memPct, err := w.deps.Sampler.Sample()
	if err != nil {
		w.logger.Warn("failed to sample load, assuming normal", "error", err)
		return monitor.LoadNormal
	}
	level := monitor.Classify(cpuPct, memPct, w.cfg.LoadThresholds)
	monitor.RecordLoadLevel(w.db, level)
	return level
}

// waitForNonCriticalLoad blocks, re-polling every CriticalBackoff, until
// load drops below critical or ctx is cancelled (§4.4.3 step 1, §4.4.4
// step 3's "wait for non-critical load as in batch mode").
func (w *Watcher) waitForNonCriticalLoad(ctx context.Context) (monitor.LoadLevel, error) {
	for {
		level := w.pollLoadLevel()
		if level != monitor.LoadCritical {
			return level, nil
		}
		w.logger.Warn("load critical, backing off before next batch", "backoff", w.cfg.CriticalBackoff)
		select {
		case <-ctx.Done():
			return level, ctx.Err()
		case <-time.After(w.cfg.CriticalBackoff):
		}
	}
}

// batchSizeFor maps a load level to the batch size named in §4.4.6.
func (w *Watcher) batchSizeFor(level monitor.LoadLevel) int {
	if level == monitor.LoadHigh {
		return w.cfg.BatchSizeLow
	}
	return w.cfg.BatchSizeNormal
}

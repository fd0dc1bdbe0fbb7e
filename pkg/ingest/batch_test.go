// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatch_DrainsPendingListAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.BatchSizeNormal = 2
	w.cfg.SleepBetweenBatches = time.Millisecond

	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, env.writeSourceFile(
			"f"+string(rune('0'+i))+".md",
			"content "+string(rune('0'+i)),
		))
	}
	require.NoError(t, writeLinesAtomic(env.paths.PendingPath(env.rec.Name), paths))

	err := w.runBatch(context.Background())
	require.NoError(t, err)

	assert.False(t, pendingListExists(env.paths.PendingPath(env.rec.Name)), "pending list must be removed once drained")
	assert.Equal(t, 5, w.Stats().Ingested)

	rec := env.reg.Get(env.rec.Name)
	require.NotNil(t, rec.LastSyncAt)

	history := w.meta.History(0)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 5, history[0].FilesProcessed)
}

func TestRunBatch_ContinuesPastPerFileFailures(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.BatchSizeNormal = 10
	w.cfg.SleepBetweenBatches = time.Millisecond

	ok := env.writeSourceFile("ok.md", "fine")
	missing := env.sourceDir + "/does-not-exist.md"
	require.NoError(t, writeLinesAtomic(env.paths.PendingPath(env.rec.Name), []string{ok, missing}))

	err := w.runBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, w.Stats().Ingested)
	assert.Equal(t, 1, w.Stats().Snapshot().Errors)

	alerts := env.alertStore.ByDatabase(env.rec.Name, true)
	var sawPartial bool
	for _, a := range alerts {
		if string(a.Type) == "ingestion_partial" {
			sawPartial = true
		}
	}
	assert.True(t, sawPartial, "a batch with any per-file failure must raise ingestion_partial")
}

func TestRunBatch_HonorsContextCancellation(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.BatchSizeNormal = 1
	w.cfg.SleepBetweenBatches = time.Hour

	paths := []string{
		env.writeSourceFile("a.md", "a"),
		env.writeSourceFile("b.md", "b"),
	}
	require.NoError(t, writeLinesAtomic(env.paths.PendingPath(env.rec.Name), paths))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.runBatch(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

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

	"github.com/kraklabs/hybridrag/pkg/lock"
)

func TestRun_LockContentionReturnsErrLockContention(t *testing.T) {
	env := newTestEnv(t)

	holder, err := lock.New(env.paths.PIDsDir, env.rec.Name)
	require.NoError(t, err)
	ok, err := holder.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Release()

	w := env.newWatcher()
	err = w.Run(context.Background())
	assert.ErrorIs(t, err, ErrLockContention)
}

func TestRun_EmptyDatabaseDiscoversThenBatchesThenWatches(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.BatchSizeNormal = 10
	w.cfg.SleepBetweenBatches = time.Millisecond
	w.cfg.WatchInterval = 10 * time.Millisecond

	env.writeSourceFile("a.md", "alpha")
	env.writeSourceFile("b.md", "beta")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	require.NoError(t, err, "a context cancellation must surface as nil from Run")

	assert.Equal(t, 2, w.Stats().Ingested)
	assert.Equal(t, StateDown, w.State())
	assert.False(t, pendingListExists(env.paths.PendingPath(env.rec.Name)))
}

func TestRun_ResumesFromExistingPendingList(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.BatchSizeNormal = 10
	w.cfg.SleepBetweenBatches = time.Millisecond
	w.cfg.WatchInterval = 10 * time.Millisecond

	path := env.writeSourceFile("resume.md", "resume me")
	require.NoError(t, writeLinesAtomic(env.paths.PendingPath(env.rec.Name), []string{path}))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Stats().Ingested)
}

func TestRun_NonEmptyDatabaseGoesStraightToWatching(t *testing.T) {
	env := newTestEnv(t)

	seed := env.newWatcher()
	env.writeSourceFile("seed.md", "seed content")
	_, err := seed.discover(context.Background())
	require.NoError(t, err)
	require.NoError(t, seed.runBatch(context.Background()))
	require.Equal(t, 1, seed.Stats().Ingested)
	seed.releaseEngine()

	w := env.newWatcher()
	w.cfg.WatchInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDown, w.State())
	assert.Equal(t, 0, w.Stats().Ingested, "a pre-populated database skips discovery and batch entirely")
}

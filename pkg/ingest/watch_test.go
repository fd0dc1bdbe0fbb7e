// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWatch_IngestsFilesCreatedAfterBaseline(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.WatchInterval = 10 * time.Millisecond
	w.cfg.BatchSizeNormal = 10

	env.writeSourceFile("pre-existing.md", "already here before baseline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.runWatch(ctx) }()

	// give the baseline scan a moment to run before introducing the new file.
	time.Sleep(30 * time.Millisecond)
	env.writeSourceFile("new.md", "shows up after baseline")

	require.Eventually(t, func() bool {
		return w.Stats().Ingested == 1
	}, 2*time.Second, 10*time.Millisecond, "the post-baseline file must be ingested within a few watch cycles")

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunWatch_SkipsFilesPresentAtBaseline(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.WatchInterval = 10 * time.Millisecond

	env.writeSourceFile("already-batched.md", "handled by batch mode already")

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_ = w.runWatch(ctx)
	assert.Equal(t, 0, w.Stats().Ingested, "watch mode's baseline must not re-ingest files batch mode already saw")
}

func TestRunWatch_RecordsIngestionHistoryPerCycle(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	w.cfg.WatchInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.runWatch(ctx) }()

	time.Sleep(30 * time.Millisecond)
	env.writeSourceFile("new.md", "content")

	require.Eventually(t, func() bool {
		return len(w.meta.History(0)) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_WritesSortedPendingList(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	ctx := context.Background()

	b := env.writeSourceFile("b.md", "b")
	a := env.writeSourceFile("a.md", "a")
	c := env.writeSourceFile("sub/c.md", "c")

	n, err := w.discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := []string{a, b, c}
	sort.Strings(want)

	lines, err := readLines(env.paths.PendingPath(env.rec.Name))
	require.NoError(t, err)
	assert.Equal(t, want, lines)
}

func TestDiscover_RecordsSourceFolderInMetadata(t *testing.T) {
	env := newTestEnv(t)
	w := env.newWatcher()
	ctx := context.Background()

	env.writeSourceFile("a.md", "a")
	_, err := w.discover(ctx)
	require.NoError(t, err)

	folders := w.meta.SourceFolders()
	require.Len(t, folders, 1)
	assert.Equal(t, env.sourceDir, folders[0].Path)
}

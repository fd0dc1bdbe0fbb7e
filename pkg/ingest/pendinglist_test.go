// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines_MissingFileReturnsNil(t *testing.T) {
	lines, err := readLines(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestWriteLinesAtomic_ReadLinesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pending.txt")
	require.NoError(t, writeLinesAtomic(path, []string{"/a.md", "/b.md", ""}))

	lines, err := readLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.md", "/b.md"}, lines, "blank lines must be skipped on read")
}

func TestWriteLinesAtomic_EmptySliceStillCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.txt")
	require.NoError(t, writeLinesAtomic(path, nil))
	assert.True(t, pendingListExists(path))
}

func TestAppendLine_AddsWithoutTruncating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrich.txt")
	require.NoError(t, appendLine(path, "/a.md"))
	require.NoError(t, appendLine(path, "/b.md"))

	lines, err := readLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.md", "/b.md"}, lines)
}

func TestRemovePendingList_ToleratesMissingFile(t *testing.T) {
	assert.NoError(t, removePendingList(filepath.Join(t.TempDir(), "missing.txt")))
}

func TestPendingListExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.txt")
	assert.False(t, pendingListExists(path))
	require.NoError(t, writeLinesAtomic(path, []string{"/a.md"}))
	assert.True(t, pendingListExists(path))
}

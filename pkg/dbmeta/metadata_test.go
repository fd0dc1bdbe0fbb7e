// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package dbmeta

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)
	assert.False(t, m.Exists())
	assert.Equal(t, CurrentVersion, m.data.Version)
}

func TestAddSourceFolder_UpdatesExistingEntry(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	srcDir := t.TempDir()
	require.NoError(t, m.AddSourceFolder(srcDir, true))
	require.NoError(t, m.AddSourceFolder(srcDir, false))

	folders := m.SourceFolders()
	require.Len(t, folders, 1)
	assert.False(t, folders[0].Recursive)
}

func TestRecordIngestion_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	_, err = m.RecordIngestion("/src", ModeBatch, 23, 0, true, "initial discovery")
	require.NoError(t, err)

	reloaded, err := Open(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.Exists())

	history := reloaded.History(10)
	require.Len(t, history, 1)
	assert.Equal(t, 23, history[0].FilesProcessed)
	assert.NotEmpty(t, history[0].ID)

	stats := reloaded.GetStats()
	assert.Equal(t, 23, stats.TotalFilesIngested)
	assert.Equal(t, 1, stats.IngestionEvents)
}

func TestRecordIngestion_FailureDoesNotAccumulateTotal(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	_, err = m.RecordIngestion("/src", ModeWatch, 5, 5, false, "boom")
	require.NoError(t, err)

	assert.Equal(t, 0, m.GetStats().TotalFilesIngested)
}

func TestHistory_LimitsToMostRecent(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := m.RecordIngestion("/src", ModeWatch, 1, 0, true, "")
		require.NoError(t, err)
	}

	assert.Len(t, m.History(2), 2)
	assert.Len(t, m.History(0), 5)
}

func TestSetDescription(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, m.SetDescription("notes database"))
	assert.Equal(t, "notes database", m.GetStats().Description)
	assert.FileExists(t, filepath.Join(dir, "database_metadata.json"))
}

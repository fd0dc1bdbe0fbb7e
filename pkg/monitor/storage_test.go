// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSizedFile(t *testing.T, path string, sizeBytes int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, sizeBytes), 0o644))
}

func TestCheckStorageSize_NoWarningsBelowThresholds(t *testing.T) {
	dir := t.TempDir()
	writeSizedFile(t, filepath.Join(dir, "small.json"), 1024)

	warnings, err := CheckStorageSize(dir, 500, 2048)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCheckStorageSize_SingleFileWarning(t *testing.T) {
	dir := t.TempDir()
	writeSizedFile(t, filepath.Join(dir, "big.json"), 2*1024*1024)

	warnings, err := CheckStorageSize(dir, 1, 999999)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, SeverityWarning, warnings[0].Severity)
	assert.NotEmpty(t, warnings[0].Path)
}

func TestCheckStorageSize_TotalSizeEscalatesToError(t *testing.T) {
	dir := t.TempDir()
	writeSizedFile(t, filepath.Join(dir, "a.json"), 2*1024*1024)
	writeSizedFile(t, filepath.Join(dir, "b.json"), 2*1024*1024)

	warnings, err := CheckStorageSize(dir, 999999, 1)
	require.NoError(t, err)

	var totalWarning *StorageWarning
	for i := range warnings {
		if warnings[i].Path == "" {
			totalWarning = &warnings[i]
		}
	}
	require.NotNil(t, totalWarning)
	assert.Equal(t, SeverityError, totalWarning.Severity)
}

func TestCheckStorageSize_IgnoresNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	writeSizedFile(t, filepath.Join(dir, "big.bin"), 2*1024*1024)

	warnings, err := CheckStorageSize(dir, 1, 999999)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/pkg/ingest"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

func TestExtractGlobalFlags(t *testing.T) {
	var g GlobalFlags
	rest := extractGlobalFlags([]string{
		"register", "mydb", "--folder", "/tmp/x", "--json", "--no-color",
		"-q", "--state-dir", "/tmp/state",
	}, &g)

	assert.True(t, g.JSON)
	assert.True(t, g.NoColor)
	assert.True(t, g.Quiet)
	assert.Equal(t, "/tmp/state", g.StateDir)
	assert.Equal(t, []string{"register", "mydb", "--folder", "/tmp/x"}, rest)
}

func TestExtractGlobalFlags_StateDirMissingValue(t *testing.T) {
	var g GlobalFlags
	rest := extractGlobalFlags([]string{"list", "--state-dir"}, &g)
	assert.Equal(t, "", g.StateDir)
	assert.Equal(t, []string{"list"}, rest)
}

func TestRegistrationError(t *testing.T) {
	ue := registrationError("mydb", &registry.ErrAlreadyExists{Name: "mydb"})
	assert.Equal(t, errors.ExitInput, ue.ExitCode)
	assert.Contains(t, ue.Message, "mydb")

	ue = registrationError("My Db", &registry.ErrInvalidName{Name: "My Db"})
	assert.Equal(t, errors.ExitInput, ue.ExitCode)

	ue = registrationError("mydb", os.ErrPermission)
	assert.Equal(t, errors.ExitConfig, ue.ExitCode)
}

func TestIngestRunError(t *testing.T) {
	ue := ingestRunError("mydb", ingest.ErrLockContention)
	assert.Equal(t, errors.ExitLockContention, ue.ExitCode)

	ue = ingestRunError("mydb", os.ErrClosed)
	assert.Equal(t, errors.ExitRuntime, ue.ExitCode)
}

func TestCountPendingEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pending.jsonl")

	n, err := countPendingEntries(path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o644))
	n, err = countPendingEntries(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	n, err = countPendingEntries(path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegistryDataPath(t *testing.T) {
	e := &env{paths: &registry.StatePaths{Root: "/home/u/.hybridrag"}}
	got := registryDataPath(e, "mydb")
	assert.Equal(t, "/home/u/.hybridrag/db_data/mydb", got)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hybridrag/pkg/engine/jsonengine"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

type testEnv struct {
	t      *testing.T
	paths  *registry.StatePaths
	reg    *registry.Registry
	alerts *monitor.AlertStore
	deps   Deps
	rec    *registry.DatabaseRecord
}

// newTestEnv registers one JSON-backed database named "docs" under a
// fresh temp state root, mirroring pkg/ingest's setup_test.go harness.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbDir := t.TempDir()
	stateDir := t.TempDir()

	paths, err := registry.NewStatePaths(stateDir)
	require.NoError(t, err)

	reg, err := registry.Open(paths.RegistryPath)
	require.NoError(t, err)

	store, err := monitor.OpenAlertStore(paths.AlertsPath)
	require.NoError(t, err)

	rec, err := reg.Register(registry.DatabaseRecord{
		Name:       "docs",
		Path:       dbDir,
		SourceType: registry.SourceFilesystem,
		Backend:    registry.Backend{Kind: registry.BackendJSON},
	})
	require.NoError(t, err)

	return &testEnv{
		t:      t,
		paths:  paths,
		reg:    reg,
		alerts: store,
		deps: Deps{
			Registry: reg,
			Paths:    paths,
			Alerts:   store,
		},
		rec: rec,
	}
}

// seedDocs inserts content directly (bypassing the query-side read-only
// open) so tests can populate a database before exercising query tools.
func (e *testEnv) seedDocs(contents ...string) {
	e.t.Helper()
	eng, err := jsonengine.Open(e.rec.Path, 64)
	require.NoError(e.t, err)
	defer eng.Close()

	for i, c := range contents {
		_, err := eng.Insert(e.t.Context(), []byte(c), e.rec.Path+"/doc"+strconv.Itoa(i)+".md")
		require.NoError(e.t, err)
	}
}

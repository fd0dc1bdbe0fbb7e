// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// testEnv bundles a fully wired Watcher plus the plain filesystem layout
// behind it, so each test can assert against the registry, the pending
// lists, and the source folder directly.
type testEnv struct {
	t          *testing.T
	sourceDir  string
	dbDir      string
	stateDir   string
	paths      *registry.StatePaths
	reg        *registry.Registry
	alertStore *monitor.AlertStore
	deps       Deps
	rec        *registry.DatabaseRecord
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sourceDir := t.TempDir()
	dbDir := t.TempDir()
	stateDir := t.TempDir()

	paths, err := registry.NewStatePaths(stateDir)
	require.NoError(t, err)

	reg, err := registry.Open(paths.RegistryPath)
	require.NoError(t, err)

	store, err := monitor.OpenAlertStore(paths.AlertsPath)
	require.NoError(t, err)

	rec, err := reg.Register(registry.DatabaseRecord{
		Name:         "docs",
		Path:         dbDir,
		SourceFolder: sourceDir,
		SourceType:   registry.SourceFilesystem,
		Backend:      registry.Backend{Kind: registry.BackendJSON},
	})
	require.NoError(t, err)

	return &testEnv{
		t:          t,
		sourceDir:  sourceDir,
		dbDir:      dbDir,
		stateDir:   stateDir,
		paths:      paths,
		reg:        reg,
		alertStore: store,
		deps: Deps{
			Registry: reg,
			Paths:    paths,
			Alerts:   monitor.NewAlertManager(store, nil),
		},
		rec: rec,
	}
}

func (e *testEnv) newWatcher() *Watcher {
	e.t.Helper()
	w, err := New(e.rec.Name, e.rec, e.deps)
	require.NoError(e.t, err)
	return w
}

// writeSourceFile writes name (relative to sourceDir) with the given
// content, creating parent directories as needed.
func (e *testEnv) writeSourceFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.sourceDir, name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

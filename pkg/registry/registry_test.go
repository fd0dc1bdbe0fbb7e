// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	r, err := Open(filepath.Join(dir, "registry.yaml"))
	require.NoError(t, err)
	return r
}

func TestRegister_NameValidation(t *testing.T) {
	r := newTestRegistry(t)

	valid := []string{"a", "abc", "ab-c", "a1b2", "my-database-1"}
	for _, n := range valid {
		_, err := r.Register(DatabaseRecord{Name: n, Path: "/tmp/" + n})
		assert.NoErrorf(t, err, "expected %q to be valid", n)
	}

	invalid := []string{"", "-abc", "abc-", "ABC", "a_b", "a b", "-"}
	for _, n := range invalid {
		_, err := r.Register(DatabaseRecord{Name: n, Path: "/tmp/x"})
		assert.Errorf(t, err, "expected %q to be invalid", n)
		var inv *ErrInvalidName
		assert.ErrorAs(t, err, &inv)
	}
}

func TestRegister_AlreadyExists(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(DatabaseRecord{Name: "db1", Path: "/tmp/db1"})
	require.NoError(t, err)

	_, err = r.Register(DatabaseRecord{Name: "db1", Path: "/tmp/other"})
	var exists *ErrAlreadyExists
	require.ErrorAs(t, err, &exists)
}

func TestRegister_NormalizesPathsAndDefaults(t *testing.T) {
	r := newTestRegistry(t)
	rec, err := r.Register(DatabaseRecord{Name: "db1", Path: "relpath", SourceFolder: "relsrc"})
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(rec.Path))
	assert.True(t, filepath.IsAbs(rec.SourceFolder))
	assert.Equal(t, DefaultThresholds(), rec.Thresholds)
	assert.Equal(t, 30, rec.WatchIntervalSec)
	assert.Equal(t, SourceFilesystem, rec.SourceType)
	assert.Equal(t, BackendJSON, rec.Backend.Kind)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestUnregister_RemovesEntryOnly(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(DatabaseRecord{Name: "db1", Path: "/tmp/db1"})
	require.NoError(t, err)

	require.NoError(t, r.Unregister("db1"))
	assert.False(t, r.Exists("db1"))

	var nf *ErrNotFound
	assert.ErrorAs(t, r.Unregister("db1"), &nf)
}

func TestUpdate_Rename(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(DatabaseRecord{Name: "old", Path: "/tmp/old"})
	require.NoError(t, err)

	newName := "new"
	rec, err := r.Update("old", UpdateFields{NewName: &newName})
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Name)
	assert.False(t, r.Exists("old"))
	assert.True(t, r.Exists("new"))
}

func TestUpdate_RenameConflict(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(DatabaseRecord{Name: "a", Path: "/tmp/a"})
	require.NoError(t, err)
	_, err = r.Register(DatabaseRecord{Name: "b", Path: "/tmp/b"})
	require.NoError(t, err)

	bName := "b"
	_, err = r.Update("a", UpdateFields{NewName: &bName})
	var exists *ErrAlreadyExists
	require.ErrorAs(t, err, &exists)
}

func TestResolve_NameVsPath(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(DatabaseRecord{Name: "db1", Path: "/tmp/db1"})
	require.NoError(t, err)

	abs, rec, err := r.Resolve("db1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "/tmp/db1", abs)

	abs, rec, err = r.Resolve("./some/path")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.True(t, filepath.IsAbs(abs))
}

func TestPersistence_SurvivesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")

	r1, err := Open(path)
	require.NoError(t, err)
	_, err = r1.Register(DatabaseRecord{Name: "db1", Path: "/tmp/db1", Description: "test db"})
	require.NoError(t, err)

	r2, err := Open(path)
	require.NoError(t, err)
	rec := r2.Get("db1")
	require.NotNil(t, rec)
	assert.Equal(t, "test db", rec.Description)
}

func TestList_SortedByName(t *testing.T) {
	r := newTestRegistry(t)
	for _, n := range []string{"zebra", "alpha", "middle"} {
		_, err := r.Register(DatabaseRecord{Name: n, Path: "/tmp/" + n})
		require.NoError(t, err)
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"alpha", "middle", "zebra"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestUpdateLastSync(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(DatabaseRecord{Name: "db1", Path: "/tmp/db1"})
	require.NoError(t, err)

	require.NoError(t, r.UpdateLastSync("db1"))
	rec := r.Get("db1")
	require.NotNil(t, rec.LastSyncAt)
}

func TestPostgresPassword_NotInJSON(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(DatabaseRecord{
		Name: "pgdb",
		Path: "/tmp/pgdb",
		Backend: Backend{
			Kind: BackendPostgres,
			Postgres: &PostgresConfig{
				Host: "localhost", Port: 5432, User: "rag", Password: "s3cret", Database: "rag",
			},
		},
	})
	require.NoError(t, err)

	rec := r.Get("pgdb")
	require.NotNil(t, rec.Backend.Postgres)
	assert.Equal(t, "s3cret", rec.Backend.Postgres.Password, "password must survive for the process that just registered it")
}

func TestPostgresPassword_NeverWrittenToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	r, err := Open(path)
	require.NoError(t, err)

	_, err = r.Register(DatabaseRecord{
		Name: "pgdb",
		Path: "/tmp/pgdb",
		Backend: Backend{
			Kind: BackendPostgres,
			Postgres: &PostgresConfig{
				Host: "localhost", Port: 5432, User: "rag", Password: "s3cret", Database: "rag",
			},
		},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret", "password must never reach the on-disk catalog")

	reopened, err := Open(path)
	require.NoError(t, err)
	rec := reopened.Get("pgdb")
	require.NotNil(t, rec.Backend.Postgres)
	assert.Empty(t, rec.Backend.Postgres.Password, "a freshly loaded record must not carry a password")

	t.Setenv("HYBRIDRAG_PG_PASSWORD_PGDB", "s3cret")
	assert.Equal(t, "s3cret", rec.Backend.Postgres.ResolvePassword("pgdb"), "env var must supply the password on reload")
}

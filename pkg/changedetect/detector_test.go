// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package changedetect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectChanges_BaselineReportsAllAsNew(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "hello")
	writeFile(t, filepath.Join(dir, "b.md"), "world")

	d := New(dir, Filters{Recursive: true})
	changes, err := d.DetectChanges()
	require.NoError(t, err)
	assert.Len(t, changes.New, 2)
	assert.Empty(t, changes.Modified)
	assert.Empty(t, changes.Deleted)
}

func TestDetectChanges_ModifiedAndDeleted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	writeFile(t, path, "v1")

	d := New(dir, Filters{Recursive: true})
	_, err := d.DetectChanges()
	require.NoError(t, err)

	// Ensure the mtime actually advances on most filesystems.
	time.Sleep(10 * time.Millisecond)
	writeFile(t, path, "v2 longer content")

	changes, err := d.DetectChanges()
	require.NoError(t, err)
	assert.Contains(t, changes.Modified, path)

	require.NoError(t, os.Remove(path))
	changes, err = d.DetectChanges()
	require.NoError(t, err)
	assert.Contains(t, changes.Deleted, path)
}

func TestDetectChanges_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "x")
	writeFile(t, filepath.Join(dir, "b.txt"), "y")

	d := New(dir, Filters{Recursive: true, Extensions: []string{".md"}})
	changes, err := d.DetectChanges()
	require.NoError(t, err)
	require.Len(t, changes.New, 1)
	assert.Equal(t, filepath.Join(dir, "a.md"), changes.New[0])
}

func TestDetectChanges_HiddenFilesExcluded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden.md"), "x")
	writeFile(t, filepath.Join(dir, "visible.md"), "y")

	d := New(dir, Filters{Recursive: true})
	changes, err := d.DetectChanges()
	require.NoError(t, err)
	require.Len(t, changes.New, 1)
	assert.Equal(t, filepath.Join(dir, "visible.md"), changes.New[0])
}

func TestDetectChanges_NonRecursiveSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.md"), "x")
	writeFile(t, filepath.Join(dir, "sub", "nested.md"), "y")

	d := New(dir, Filters{Recursive: false})
	changes, err := d.DetectChanges()
	require.NoError(t, err)
	require.Len(t, changes.New, 1)
	assert.Equal(t, filepath.Join(dir, "top.md"), changes.New[0])
}

func TestDetectChanges_SpecstoryOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".specstory", "session.md"), "x")
	writeFile(t, filepath.Join(dir, "other.md"), "y")

	d := New(dir, Filters{Recursive: true, SpecstoryOnly: true})
	changes, err := d.DetectChanges()
	require.NoError(t, err)
	require.Len(t, changes.New, 1)
	assert.Contains(t, changes.New[0], ".specstory")
}

func TestBoundedSet_EvictsOldest(t *testing.T) {
	s := NewBoundedSet(2)
	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Add("c"))

	assert.False(t, s.Contains("a"), "oldest entry should have been evicted")
	assert.True(t, s.Contains("b"))
	assert.True(t, s.Contains("c"))
	assert.Equal(t, 2, s.Len())
}

func TestBoundedSet_AddReturnsFalseForDuplicate(t *testing.T) {
	s := NewBoundedSet(10)
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint([]byte("hello world"))
	b := Fingerprint([]byte("hello world"))
	c := Fingerprint([]byte("different"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIsLikelyBinary(t *testing.T) {
	assert.False(t, IsLikelyBinary([]byte("plain text content")))
	assert.True(t, IsLikelyBinary([]byte{0x00, 0x01, 0x02, 'a', 'b'}))
}

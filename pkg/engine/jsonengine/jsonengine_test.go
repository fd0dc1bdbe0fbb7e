// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package jsonengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hybridrag/pkg/engine"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestInsert_NewDocumentCountsOnce(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	ok, err := e.Insert(ctx, []byte("hello world"), "a.md")
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := e.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsert_IdempotentOnIdenticalContent(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	_, err := e.Insert(ctx, []byte("same content"), "a.md")
	require.NoError(t, err)
	_, err = e.Insert(ctx, []byte("same content"), "a.md")
	require.NoError(t, err)

	count, err := e.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-inserting identical content must not duplicate the document")
}

func TestInsertFast_MarksProcessingNotDone(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	_, err := e.InsertFast(ctx, []byte("fast path"), "b.md")
	require.NoError(t, err)

	fp := fingerprintOf([]byte("fast path"))
	status, ok, err := e.DocStatusLookup(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, engine.StatusProcessing, status)
}

func TestDocStatusLookup_UnknownFingerprint(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	_, ok, err := e.DocStatusLookup(ctx, "deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListDocStatusKeys_ReflectsAllInserts(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	_, err := e.Insert(ctx, []byte("doc one"), "a.md")
	require.NoError(t, err)
	_, err = e.Insert(ctx, []byte("doc two"), "b.md")
	require.NoError(t, err)

	keys, err := e.ListDocStatusKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestQuery_MatchesInsertedContent(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	_, err := e.Insert(ctx, []byte("the quick brown fox"), "fox.md")
	require.NoError(t, err)
	_, err = e.Insert(ctx, []byte("an unrelated paragraph"), "other.md")
	require.NoError(t, err)

	result, err := e.Query(ctx, "quick brown", engine.ModeNaive, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "fox.md")
	assert.NotContains(t, result.Text, "other.md")
}

func TestWriteStatusMirror_ProducesReadableJSONFile(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, 0)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Insert(context.Background(), []byte("mirrored"), "m.md")
	require.NoError(t, err)

	mirrorPath := filepath.Join(dir, "kv_store_doc_status.json")
	data, err := os.ReadFile(mirrorPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"status\"")
}

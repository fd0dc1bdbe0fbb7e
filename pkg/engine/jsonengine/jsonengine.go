// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package jsonengine is the bundled reference implementation of the
// engine.Engine contract backed by an embedded bbolt store for
// documents/vectors and a JSON mirror of document status for operator
// inspection. It satisfies exactly the documented contract and nothing
// more: chunking is whole-file, "embedding" is a deterministic stand-in
// vector, and Query does a naive substring scan. It is not a
// production-grade RAG engine; the bbolt layout generalizes a typed-bucket
// store down to a content/doc-status/vector layout.
package jsonengine

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kraklabs/hybridrag/pkg/engine"
)

var (
	bucketDocs      = []byte("documents")
	bucketDocStatus = []byte("doc_status")
	bucketVectors   = []byte("vectors")
)

// docRecord is the bbolt payload for a single inserted document.
type docRecord struct {
	SourcePath string    `json:"source_path"`
	Content    string    `json:"content"`
	InsertedAt time.Time `json:"inserted_at"`
	FastOnly   bool      `json:"fast_only"`
}

// statusEntry mirrors engine.DocStatus, persisted twice: once inside
// bbolt for transactional consistency with the document write, and once
// as a flat JSON file (kv_store_doc_status.json) so an operator (or the
// core's startup dedup-seed path) can inspect status without opening the
// bbolt file directly.
type statusEntry struct {
	Status     engine.DocStatus `json:"status"`
	UpdatedAt  time.Time        `json:"updated_at"`
	SourcePath string           `json:"source_path"`
}

// Engine is the bbolt-backed reference engine.
type Engine struct {
	mu         sync.Mutex
	db         *bolt.DB
	dir        string
	statusPath string
	dimension  int
}

// Open creates or opens a jsonengine database rooted at dir. dir is
// created if missing. dimension controls the size of the stand-in
// embedding vector (default 64).
func Open(dir string, dimension int) (*Engine, error) {
	if dimension <= 0 {
		dimension = 64
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonengine: create dir: %w", err)
	}

	dbPath := filepath.Join(dir, "vectors.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("jsonengine: open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketDocStatus, bucketVectors} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("jsonengine: init buckets: %w", err)
	}

	e := &Engine{
		db:         db,
		dir:        dir,
		statusPath: filepath.Join(dir, "kv_store_doc_status.json"),
		dimension:  dimension,
	}
	return e, nil
}

// OpenReadOnly opens an existing jsonengine database for query-only
// access, for pkg/tools' query surface (§6.4) reading alongside a live
// ingestion watcher. bbolt has no separate reader lock: a read-only open
// still requests flock(2) and conflicts with the watcher's exclusive
// one, so this uses a short timeout rather than Open's 5s and fails
// fast with a wrapped bolt.ErrTimeout instead of blocking a query
// request. Callers that run in the same process as the watcher should
// prefer sharing its already-open engine.Engine instead of calling this.
func OpenReadOnly(dir string) (*Engine, error) {
	dbPath := filepath.Join(dir, "vectors.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 500 * time.Millisecond, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("jsonengine: open %s read-only: %w", dbPath, err)
	}
	return &Engine{
		db:         db,
		dir:        dir,
		statusPath: filepath.Join(dir, "kv_store_doc_status.json"),
	}, nil
}

func fingerprintOf(content []byte) string {
	sum := md5.Sum(content) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Insert runs the full (whole-file) pipeline: store content, compute a
// stand-in embedding, and mark status done. Idempotent on identical
// content: re-inserting the same fingerprint is a no-op that still
// reports success.
func (e *Engine) Insert(ctx context.Context, content []byte, sourcePath string) (bool, error) {
	return e.insert(ctx, content, sourcePath, false)
}

// InsertFast stores the content and a stand-in embedding but marks the
// document "processing" rather than "done", mirroring an embed-only fast
// path whose entity/relation extraction runs later via the enrichment
// worker (§4.4.8).
func (e *Engine) InsertFast(ctx context.Context, content []byte, sourcePath string) (bool, error) {
	return e.insert(ctx, content, sourcePath, true)
}

// SupportsInsertFast reports that the embed-only fast path is available,
// satisfying engine.SupportsInsertFast's type assertion.
func (e *Engine) SupportsInsertFast() bool { return true }

func (e *Engine) insert(ctx context.Context, content []byte, sourcePath string, fast bool) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	fp := fingerprintOf(content)
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var alreadyDone bool
	err := e.db.Update(func(tx *bolt.Tx) error {
		statusBucket := tx.Bucket(bucketDocStatus)
		if existing := statusBucket.Get([]byte(fp)); existing != nil {
			var se statusEntry
			if err := json.Unmarshal(existing, &se); err == nil && se.Status == engine.StatusDone {
				alreadyDone = true
				return nil
			}
		}

		rec := docRecord{SourcePath: sourcePath, Content: string(content), InsertedAt: now, FastOnly: fast}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put([]byte(fp), data); err != nil {
			return err
		}

		vec := stubEmbedding(content, e.dimension)
		vecData, err := json.Marshal(vec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketVectors).Put([]byte(fp), vecData); err != nil {
			return err
		}

		status := engine.StatusDone
		if fast {
			status = engine.StatusProcessing
		}
		se := statusEntry{Status: status, UpdatedAt: now, SourcePath: sourcePath}
		seData, err := json.Marshal(se)
		if err != nil {
			return err
		}
		return statusBucket.Put([]byte(fp), seData)
	})
	if err != nil {
		return false, fmt.Errorf("jsonengine: insert: %w", err)
	}
	if alreadyDone {
		return true, nil
	}

	if err := e.writeStatusMirror(); err != nil {
		return true, fmt.Errorf("jsonengine: mirror doc status: %w", err)
	}
	return true, nil
}

// Query performs a naive substring scan over stored document content,
// the simplest possible stand-in for mode-specific retrieval — real
// ranking and mode-aware retrieval are out of scope for this reference
// engine.
func (e *Engine) Query(ctx context.Context, text string, mode engine.QueryMode, _ map[string]any) (*engine.QueryResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	start := time.Now()
	var matches []string

	e.mu.Lock()
	err := e.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(_, v []byte) error {
			var rec docRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if strings.Contains(strings.ToLower(rec.Content), strings.ToLower(text)) {
				matches = append(matches, rec.SourcePath)
			}
			return nil
		})
	})
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("jsonengine: query: %w", err)
	}

	result := &engine.QueryResult{
		Text:             fmt.Sprintf("[%s] %d matching document(s): %s", mode, len(matches), strings.Join(matches, ", ")),
		ExecutionTimeSec: time.Since(start).Seconds(),
	}
	return result, nil
}

// DocumentCount reports how many fingerprints have a document entry.
func (e *Engine) DocumentCount(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	count := 0
	e.mu.Lock()
	err := e.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketDocs).Stats().KeyN
		return nil
	})
	e.mu.Unlock()
	return count, err
}

// DocStatusLookup reports the processing status for a fingerprint.
func (e *Engine) DocStatusLookup(ctx context.Context, fingerprint string) (engine.DocStatus, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	default:
	}

	var se statusEntry
	found := false
	e.mu.Lock()
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDocStatus).Get([]byte(fingerprint))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &se)
	})
	e.mu.Unlock()
	if err != nil {
		return "", false, fmt.Errorf("jsonengine: doc status lookup: %w", err)
	}
	return se.Status, found, nil
}

// ListDocStatusKeys enumerates every known fingerprint.
func (e *Engine) ListDocStatusKeys(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var keys []string
	e.mu.Lock()
	err := e.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDocStatus).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("jsonengine: list doc status keys: %w", err)
	}
	return keys, nil
}

// Close closes the bbolt file.
func (e *Engine) Close() error {
	return e.db.Close()
}

// writeStatusMirror dumps the full doc-status bucket to the flat JSON
// file operators expect to find at kv_store_doc_status.json, using the
// write-temp-then-rename pattern for crash safety.
func (e *Engine) writeStatusMirror() error {
	mirror := map[string]statusEntry{}
	err := e.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDocStatus).ForEach(func(k, v []byte) error {
			var se statusEntry
			if err := json.Unmarshal(v, &se); err != nil {
				return nil
			}
			mirror[string(k)] = se
			return nil
		})
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(mirror, "", "  ")
	if err != nil {
		return err
	}

	tmp := e.statusPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, e.statusPath)
}

// stubEmbedding generates a deterministic pseudo-embedding from content
// via djb2-style hash expansion, since real embedding models are out of
// this engine's scope.
func stubEmbedding(content []byte, dim int) []float32 {
	var hash uint64 = 5381
	for _, c := range content {
		hash = ((hash << 5) + hash) + uint64(c)
	}

	vec := make([]float32, dim)
	for i := 0; i < dim; i++ {
		val := float32((hash+uint64(i)*7919)%10000) / 10000.0
		vec[i] = val*2.0 - 1.0
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package pgengine is the PostgreSQL+pgvector reference implementation of
// the engine.Engine contract (§6.1), for databases registered with
// backend.kind = "postgres" (§3). Like jsonengine it satisfies exactly
// the contract and nothing more: embeddings are a deterministic
// stand-in, not a real model's output, and Query is a case-insensitive
// substring match over stored content.
package pgengine

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kraklabs/hybridrag/pkg/engine"
)

// Config holds the connection parameters stored on a registry.PostgresConfig.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	// Dimension is the stand-in embedding width; must match the schema's
	// vector(N) column.
	Dimension int
}

func (c Config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, sslMode)
}

// Engine is the pgx-backed reference engine.
type Engine struct {
	pool      *pgxpool.Pool
	dimension int
	retry     engine.RetryConfig
}

// Open connects to Postgres and ensures the schema (documents,
// doc_status tables, plus the vector extension) exists.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 64
	}

	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("pgengine: connect: %w", err)
	}

	e := &Engine{pool: pool, dimension: cfg.Dimension, retry: engine.DefaultRetryConfig()}

	if err := engine.WithRetry(ctx, e.retry, func(ctx context.Context) error {
		return e.ensureSchema(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgengine: ensure schema: %w", err)
	}

	return e, nil
}

func (e *Engine) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			fingerprint TEXT PRIMARY KEY,
			source_path TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, e.dimension),
		`CREATE TABLE IF NOT EXISTS doc_status (
			fingerprint TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			source_path TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := e.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func fingerprintOf(content []byte) string {
	sum := md5.Sum(content) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Insert runs the full pipeline against Postgres, idempotent on content
// fingerprint via an upsert.
func (e *Engine) Insert(ctx context.Context, content []byte, sourcePath string) (bool, error) {
	return e.insert(ctx, content, sourcePath, engine.StatusDone)
}

// InsertFast stores the document and embedding but leaves status
// "processing" for the enrichment worker to finish later.
func (e *Engine) InsertFast(ctx context.Context, content []byte, sourcePath string) (bool, error) {
	return e.insert(ctx, content, sourcePath, engine.StatusProcessing)
}

// SupportsInsertFast reports that the embed-only fast path is available,
// satisfying engine.SupportsInsertFast's type assertion.
func (e *Engine) SupportsInsertFast() bool { return true }

func (e *Engine) insert(ctx context.Context, content []byte, sourcePath string, status engine.DocStatus) (bool, error) {
	fp := fingerprintOf(content)
	vecLiteral := vectorLiteral(stubEmbedding(content, e.dimension))

	err := engine.WithRetry(ctx, e.retry, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
			var existingStatus string
			err := tx.QueryRow(ctx, `SELECT status FROM doc_status WHERE fingerprint = $1`, fp).Scan(&existingStatus)
			if err == nil && engine.DocStatus(existingStatus) == engine.StatusDone {
				return nil
			}
			if err != nil && err != pgx.ErrNoRows {
				return err
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO documents (fingerprint, source_path, content, embedding)
				VALUES ($1, $2, $3, $4::vector)
				ON CONFLICT (fingerprint) DO UPDATE SET source_path = EXCLUDED.source_path, content = EXCLUDED.content, embedding = EXCLUDED.embedding
			`, fp, sourcePath, string(content), vecLiteral); err != nil {
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO doc_status (fingerprint, status, source_path, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (fingerprint) DO UPDATE SET status = EXCLUDED.status, updated_at = now()
			`, fp, string(status), sourcePath)
			return err
		})
	})
	if err != nil {
		return false, fmt.Errorf("pgengine: insert: %w", err)
	}
	return true, nil
}

// Query runs a substring match against stored content; mode is recorded
// but does not change retrieval strategy (§1 Non-goals).
func (e *Engine) Query(ctx context.Context, text string, mode engine.QueryMode, _ map[string]any) (*engine.QueryResult, error) {
	start := time.Now()

	var paths []string
	err := engine.WithRetry(ctx, e.retry, func(ctx context.Context) error {
		rows, err := e.pool.Query(ctx, `SELECT source_path FROM documents WHERE content ILIKE $1`, "%"+text+"%")
		if err != nil {
			return err
		}
		defer rows.Close()

		paths = nil
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return err
			}
			paths = append(paths, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("pgengine: query: %w", err)
	}

	return &engine.QueryResult{
		Text:             fmt.Sprintf("[%s] %d matching document(s): %s", mode, len(paths), strings.Join(paths, ", ")),
		ExecutionTimeSec: time.Since(start).Seconds(),
	}, nil
}

// DocumentCount reports the row count of the documents table.
func (e *Engine) DocumentCount(ctx context.Context) (int, error) {
	var count int
	err := engine.WithRetry(ctx, e.retry, func(ctx context.Context) error {
		return e.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("pgengine: document count: %w", err)
	}
	return count, nil
}

// DocStatusLookup reports the processing status for a fingerprint.
func (e *Engine) DocStatusLookup(ctx context.Context, fingerprint string) (engine.DocStatus, bool, error) {
	var status string
	err := engine.WithRetry(ctx, e.retry, func(ctx context.Context) error {
		return e.pool.QueryRow(ctx, `SELECT status FROM doc_status WHERE fingerprint = $1`, fingerprint).Scan(&status)
	})
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pgengine: doc status lookup: %w", err)
	}
	return engine.DocStatus(status), true, nil
}

// ListDocStatusKeys enumerates every known fingerprint.
func (e *Engine) ListDocStatusKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := engine.WithRetry(ctx, e.retry, func(ctx context.Context) error {
		rows, err := e.pool.Query(ctx, `SELECT fingerprint FROM doc_status`)
		if err != nil {
			return err
		}
		defer rows.Close()

		keys = nil
		for rows.Next() {
			var fp string
			if err := rows.Scan(&fp); err != nil {
				return err
			}
			keys = append(keys, fp)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("pgengine: list doc status keys: %w", err)
	}
	return keys, nil
}

// Close releases the connection pool.
func (e *Engine) Close() error {
	e.pool.Close()
	return nil
}

// vectorLiteral renders a float32 slice as a pgvector text literal, e.g.
// "[0.1,0.2,0.3]".
func vectorLiteral(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// stubEmbedding generates a deterministic pseudo-embedding from content,
// the same hash-expansion approach jsonengine's stub embedder uses.
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

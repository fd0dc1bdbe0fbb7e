// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package engine defines the RAG engine contract consumed by the core
// (§6.1) and two reference implementations that satisfy it: jsonengine
// (JSON-file database metadata + an embedded bbolt vector/KV store) and
// pgengine (PostgreSQL + pgvector). Neither implementation is a
// production-grade RAG engine: chunking, embedding, and retrieval quality
// are explicitly out of scope (§1 Non-goals). They exist so the ingestion
// control plane (C4) has something concrete to drive.
package engine

import (
	"context"
	"errors"
)

// QueryMode selects the retrieval strategy for Query (§6.1).
type QueryMode string

const (
	ModeLocal  QueryMode = "local"
	ModeGlobal QueryMode = "global"
	ModeHybrid QueryMode = "hybrid"
	ModeNaive  QueryMode = "naive"
	ModeMix    QueryMode = "mix"
)

// DocStatus is the engine-maintained processing state for a content
// fingerprint, consulted by the core at startup to seed its dedup set
// (§4.4.5) and by the enrichment worker (§4.4.8).
type DocStatus string

const (
	StatusPending    DocStatus = "pending"
	StatusProcessing DocStatus = "processing"
	StatusDone       DocStatus = "done"
	StatusFailed     DocStatus = "failed"
)

// QueryResult is the structured response to Query.
type QueryResult struct {
	Text             string  `json:"text"`
	ExecutionTimeSec float64 `json:"execution_time_sec"`
	Error            string  `json:"error,omitempty"`
}

// ErrInsertFastNotSupported is returned by InsertFast when an engine does
// not offer the embed-only fast path; per §9's design notes, the watcher
// simply falls back to Insert and the enrichment worker goes unused.
var ErrInsertFastNotSupported = errors.New("engine: insert_fast not supported")

// Engine is the contract the core calls on the RAG engine (§6.1).
// Insert MUST be idempotent on identical content.
type Engine interface {
	// Insert runs the full pipeline: chunk, embed, upsert KV, extract
	// entities/relations, and merge into the graph.
	Insert(ctx context.Context, content []byte, sourcePath string) (bool, error)

	// InsertFast is the optional embed-only path. Implementations that
	// don't support it return ErrInsertFastNotSupported.
	InsertFast(ctx context.Context, content []byte, sourcePath string) (bool, error)

	// Query performs a read-only retrieval call.
	Query(ctx context.Context, text string, mode QueryMode, params map[string]any) (*QueryResult, error)

	// DocumentCount reports how many documents the engine has ingested.
	DocumentCount(ctx context.Context) (int, error)

	// DocStatusLookup reports the processing state for a content
	// fingerprint, or ok=false if unknown.
	DocStatusLookup(ctx context.Context, fingerprint string) (status DocStatus, ok bool, err error)

	// ListDocStatusKeys enumerates every known fingerprint, used by the
	// core to seed its in-process dedup set at startup (§4.4.5).
	ListDocStatusKeys(ctx context.Context) ([]string, error)

	// Close releases engine resources.
	Close() error
}

// SupportsInsertFast reports whether calling InsertFast on e is expected
// to succeed, without performing an insert.
func SupportsInsertFast(e Engine) bool {
	type faster interface{ SupportsInsertFast() bool }
	if f, ok := e.(faster); ok {
		return f.SupportsInsertFast()
	}
	return false
}

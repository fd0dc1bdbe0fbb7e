// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package tools implements the query tool surface: the named,
// parameterized operations a thin protocol server exposes to external
// assistants — database_status, health_check, get_logs, local_query,
// extract_context, global_query, hybrid_query, multihop_query. Each
// operation is a free function of (ctx, Deps, args) returning a
// *ToolResult, the same call shape used throughout (status.go's
// DatabaseStatus, query.go's LocalQuery); server.go is the thin adapter
// wiring these onto github.com/modelcontextprotocol/go-sdk, grounded on
// standardbeagle-lci/internal/mcp's server/response split.
package tools

import (
	"context"
	"log/slog"

	"github.com/kraklabs/hybridrag/pkg/engine"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// ToolResult is the result of one tool operation: text plus an error
// flag, deliberately protocol-agnostic so server.go is the only place
// that knows about MCP's CallToolResult/IsError shape.
type ToolResult struct {
	Text    string
	IsError bool
}

// NewResult builds a successful ToolResult.
func NewResult(text string) *ToolResult { return &ToolResult{Text: text} }

// NewError builds a failed ToolResult.
func NewError(text string) *ToolResult { return &ToolResult{Text: text, IsError: true} }

// EngineResolver opens an engine.Engine for querying rec, returning a
// release func the caller must invoke once done. The default
// (defaultEngineFor) opens its own handle per call; a process that also
// runs the database's Watcher should supply one that returns the
// Watcher's already-open instance with a no-op release instead, since
// jsonengine's file lock is exclusive — see jsonengine.OpenReadOnly's
// doc comment for why a fresh read-only open still contends with it.
type EngineResolver func(ctx context.Context, rec *registry.DatabaseRecord) (engine.Engine, func(), error)

// Deps bundles the collaborators the query tool surface reads from.
// None of these are mutated by this package; §5's "no external caller
// mutates" rule for the engine instance applies by the same logic to
// the registry, alert store, and metadata files this package only reads.
type Deps struct {
	Registry *registry.Registry
	Paths    *registry.StatePaths
	Alerts   *monitor.AlertStore
	Logger   *slog.Logger

	// EngineFor resolves an engine for query execution. Nil uses
	// defaultEngineFor.
	EngineFor EngineResolver
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) engineFor(ctx context.Context, rec *registry.DatabaseRecord) (engine.Engine, func(), error) {
	if d.EngineFor != nil {
		return d.EngineFor(ctx, rec)
	}
	return defaultEngineFor(ctx, rec)
}

// lookupDatabase resolves name to a registry record, returning a
// *ToolResult error (never a Go error) so every operation can report a
// missing database through the same IsError channel the protocol layer
// expects, rather than a distinct error-handling path.
func (d Deps) lookupDatabase(name string) (*registry.DatabaseRecord, *ToolResult) {
	if d.Registry == nil {
		return nil, NewError("tools: no registry configured")
	}
	rec := d.Registry.Get(name)
	if rec == nil {
		return nil, NewError("database \"" + name + "\" not found")
	}
	return rec, nil
}

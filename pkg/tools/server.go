// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName and ServerVersion identify this query tool surface to MCP
// clients, mirroring standardbeagle-lci/internal/mcp's
// mcp.Implementation{Name, Version} construction.
const (
	ServerName    = "hybridrag-query"
	ServerVersion = "0.1.0"
)

// Server adapts the operations in this package onto
// github.com/modelcontextprotocol/go-sdk's stdio MCP transport. It owns
// no state of its own beyond Deps; every tool call is a pure function of
// its arguments and deps.
type Server struct {
	deps   Deps
	server *mcp.Server
}

// NewServer builds a Server with every §6.4 tool registered.
func NewServer(deps Deps) *Server {
	s := &Server{
		deps: deps,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// Start serves the registered tools over stdio until ctx is cancelled,
// matching standardbeagle-lci/internal/mcp's Server.Start.
func (s *Server) Start(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func databaseProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func textProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func topKProperty() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: "Maximum results to return (default 10)"}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "database_status",
		Description: "Summary counts and watcher state for one database, or every registered database if none is named.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"database": databaseProperty("Database name; omit to list every registered database"),
			},
		},
	}, s.handleDatabaseStatus)

	s.server.AddTool(&mcp.Tool{
		Name:        "health_check",
		Description: "Whether watched databases are running and whether any critical alert is outstanding.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"database": databaseProperty("Database name; omit to check every registered database"),
			},
		},
	}, s.handleHealthCheck)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_logs",
		Description: "Tail the control plane's log file, optionally filtered to a minimum severity level.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"lines": {Type: "integer", Description: "Maximum lines to return (default 100)"},
				"level": {Type: "string", Description: "Minimum level: debug, info, warn, or error"},
			},
		},
	}, s.handleGetLogs)

	s.server.AddTool(&mcp.Tool{
		Name:        "local_query",
		Description: "Retrieval scoped to content directly matching the query text.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"database", "text"},
			Properties: map[string]*jsonschema.Schema{
				"database": databaseProperty("Database to query"),
				"text":     textProperty("Query text"),
				"top_k":    topKProperty(),
			},
		},
	}, s.handleLocalQuery)

	s.server.AddTool(&mcp.Tool{
		Name:        "extract_context",
		Description: "Like the mode-specific query tools, but with an explicit retrieval mode: local, global, hybrid, naive, or mix.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"database", "text", "mode"},
			Properties: map[string]*jsonschema.Schema{
				"database": databaseProperty("Database to query"),
				"text":     textProperty("Query text"),
				"mode":     {Type: "string", Description: "Retrieval mode: local, global, hybrid, naive, or mix"},
				"top_k":    topKProperty(),
			},
		},
	}, s.handleExtractContext)

	s.server.AddTool(&mcp.Tool{
		Name:        "global_query",
		Description: "Retrieval drawing on corpus-wide structure rather than single-document matches. Higher latency; callers SHOULD run this as a background task.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"database", "text"},
			Properties: map[string]*jsonschema.Schema{
				"database": databaseProperty("Database to query"),
				"text":     textProperty("Query text"),
				"top_k":    topKProperty(),
			},
		},
	}, s.handleGlobalQuery)

	s.server.AddTool(&mcp.Tool{
		Name:        "hybrid_query",
		Description: "Combined local and global retrieval. Higher latency; callers SHOULD run this as a background task.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"database", "text"},
			Properties: map[string]*jsonschema.Schema{
				"database": databaseProperty("Database to query"),
				"text":     textProperty("Query text"),
				"top_k":    topKProperty(),
			},
		},
	}, s.handleHybridQuery)

	s.server.AddTool(&mcp.Tool{
		Name:        "multihop_query",
		Description: "Iterative multi-hop retrieval, narrowing the query using each hop's result. Long-running; callers SHOULD run this as a background task.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"database", "text"},
			Properties: map[string]*jsonschema.Schema{
				"database":  databaseProperty("Database to query"),
				"text":      textProperty("Query text"),
				"max_steps": {Type: "integer", Description: "Maximum hops (default 3, capped at 10)"},
			},
		},
	}, s.handleMultihopQuery)
}

// toolResultOf translates a ToolResult into the MCP wire shape, setting
// IsError per the MCP spec's requirement that tool errors live inside the
// result object rather than as a protocol-level error, so the calling
// model can see and self-correct.
func toolResultOf(res *ToolResult, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: res.Text}},
		IsError: res.IsError,
	}, nil
}

func unmarshalArgs(req *mcp.CallToolRequest, v any) error {
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("tools: invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) handleDatabaseStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args DatabaseStatusArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(DatabaseStatus(ctx, s.deps, args))
}

func (s *Server) handleHealthCheck(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args HealthCheckArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(HealthCheck(ctx, s.deps, args))
}

func (s *Server) handleGetLogs(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args GetLogsArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(GetLogs(ctx, s.deps, args))
}

func (s *Server) handleLocalQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args LocalQueryArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(LocalQuery(ctx, s.deps, args))
}

func (s *Server) handleExtractContext(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ExtractContextArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(ExtractContext(ctx, s.deps, args))
}

func (s *Server) handleGlobalQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args GlobalQueryArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(GlobalQuery(ctx, s.deps, args))
}

func (s *Server) handleHybridQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args HybridQueryArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(HybridQuery(ctx, s.deps, args))
}

func (s *Server) handleMultihopQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args MultihopQueryArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return toolResultOf(NewError(err.Error()), nil)
	}
	return toolResultOf(MultihopQuery(ctx, s.deps, args))
}

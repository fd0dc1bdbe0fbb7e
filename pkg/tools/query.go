// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/hybridrag/pkg/engine"
)

const defaultTopK = 10

// defaultMaxHops bounds multihop_query when max_steps is unset or <= 0.
const defaultMaxHops = 3

// hardMaxHops is multihop_query's absolute ceiling regardless of the
// caller's max_steps, keeping the "long-running, background task" tool
// named in §6.4 from running away on a misbehaving client.
const hardMaxHops = 10

// runQuery opens rec's engine, executes one Query call, and releases the
// engine before returning — the shared body every mode-specific tool
// below wraps with its own arg validation and top_k default.
func runQuery(ctx context.Context, deps Deps, database, text string, mode engine.QueryMode, params map[string]any) (*ToolResult, error) {
	rec, errResult := deps.lookupDatabase(database)
	if errResult != nil {
		return errResult, nil
	}

	eng, release, err := deps.engineFor(ctx, rec)
	if err != nil {
		return NewError(fmt.Sprintf("tools: open database %q: %s", database, err)), nil
	}
	defer release()

	result, err := eng.Query(ctx, text, mode, params)
	if err != nil {
		return NewError(fmt.Sprintf("tools: query database %q: %s", database, err)), nil
	}
	return jsonResult(result)
}

func topKOrDefault(topK int) int {
	if topK <= 0 {
		return defaultTopK
	}
	return topK
}

// LocalQueryArgs parameterizes local_query (§6.4): retrieval scoped to
// content directly matching text.
type LocalQueryArgs struct {
	Database string `json:"database"`
	Text     string `json:"text"`
	TopK     int    `json:"top_k,omitempty"`
}

// LocalQuery implements local_query.
func LocalQuery(ctx context.Context, deps Deps, args LocalQueryArgs) (*ToolResult, error) {
	return runQuery(ctx, deps, args.Database, args.Text, engine.ModeLocal, map[string]any{"top_k": topKOrDefault(args.TopK)})
}

// GlobalQueryArgs parameterizes global_query (§6.4): retrieval drawing on
// corpus-wide structure rather than single-document matches.
type GlobalQueryArgs struct {
	Database string `json:"database"`
	Text     string `json:"text"`
	TopK     int    `json:"top_k,omitempty"`
}

// GlobalQuery implements global_query. SHOULD be invoked as a background
// task by callers per §6.4; this package imposes no such requirement
// itself, leaving scheduling to the protocol layer.
func GlobalQuery(ctx context.Context, deps Deps, args GlobalQueryArgs) (*ToolResult, error) {
	return runQuery(ctx, deps, args.Database, args.Text, engine.ModeGlobal, map[string]any{"top_k": topKOrDefault(args.TopK)})
}

// HybridQueryArgs parameterizes hybrid_query (§6.4): combined local and
// global retrieval.
type HybridQueryArgs struct {
	Database string `json:"database"`
	Text     string `json:"text"`
	TopK     int    `json:"top_k,omitempty"`
}

// HybridQuery implements hybrid_query.
func HybridQuery(ctx context.Context, deps Deps, args HybridQueryArgs) (*ToolResult, error) {
	return runQuery(ctx, deps, args.Database, args.Text, engine.ModeHybrid, map[string]any{"top_k": topKOrDefault(args.TopK)})
}

// validQueryModes is the set extract_context's explicit mode parameter
// accepts, mirroring engine.QueryMode's constants.
var validQueryModes = map[string]engine.QueryMode{
	"local":  engine.ModeLocal,
	"global": engine.ModeGlobal,
	"hybrid": engine.ModeHybrid,
	"naive":  engine.ModeNaive,
	"mix":    engine.ModeMix,
}

// ExtractContextArgs parameterizes extract_context (§6.4): like the
// mode-specific query tools but with an explicit, caller-chosen mode
// rather than one fixed by the tool name.
type ExtractContextArgs struct {
	Database string `json:"database"`
	Text     string `json:"text"`
	Mode     string `json:"mode"`
	TopK     int    `json:"top_k,omitempty"`
}

// ExtractContext implements extract_context.
func ExtractContext(ctx context.Context, deps Deps, args ExtractContextArgs) (*ToolResult, error) {
	mode, ok := validQueryModes[strings.ToLower(strings.TrimSpace(args.Mode))]
	if !ok {
		return NewError(fmt.Sprintf("tools: invalid mode %q (want one of local, global, hybrid, naive, mix)", args.Mode)), nil
	}
	return runQuery(ctx, deps, args.Database, args.Text, mode, map[string]any{"top_k": topKOrDefault(args.TopK)})
}

// MultihopQueryArgs parameterizes multihop_query (§6.4).
type MultihopQueryArgs struct {
	Database string `json:"database"`
	Text     string `json:"text"`
	MaxSteps int    `json:"max_steps,omitempty"`
}

// multihopStep is one iteration's result, returned alongside the final
// answer so a caller can see how the traversal evolved.
type multihopStep struct {
	Step             int     `json:"step"`
	Query            string  `json:"query"`
	Text             string  `json:"text"`
	ExecutionTimeSec float64 `json:"execution_time_sec"`
}

// MultihopQuery implements multihop_query (§6.4): a long-running,
// background-task tool per spec. The bundled reference engines have no
// graph-traversal retrieval of their own (§1 Non-goals declines to
// define retrieval quality), so each hop re-queries in mix mode, folding
// the previous hop's result text into the next query the way a
// multi-hop retriever narrows its question using what it has already
// found; the walk stops early once a hop returns the same text as the
// one before it (no new ground to cover).
func MultihopQuery(ctx context.Context, deps Deps, args MultihopQueryArgs) (*ToolResult, error) {
	rec, errResult := deps.lookupDatabase(args.Database)
	if errResult != nil {
		return errResult, nil
	}

	maxSteps := args.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxHops
	}
	if maxSteps > hardMaxHops {
		maxSteps = hardMaxHops
	}

	eng, release, err := deps.engineFor(ctx, rec)
	if err != nil {
		return NewError(fmt.Sprintf("tools: open database %q: %s", args.Database, err)), nil
	}
	defer release()

	steps := make([]multihopStep, 0, maxSteps)
	query := args.Text
	var lastText string
	for i := 1; i <= maxSteps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := eng.Query(ctx, query, engine.ModeMix, map[string]any{"top_k": defaultTopK, "hop": i})
		if err != nil {
			return NewError(fmt.Sprintf("tools: query database %q at hop %d: %s", args.Database, i, err)), nil
		}
		steps = append(steps, multihopStep{Step: i, Query: query, Text: result.Text, ExecutionTimeSec: result.ExecutionTimeSec})

		if result.Text == lastText {
			break
		}
		lastText = result.Text
		query = args.Text + " " + result.Text
	}

	return jsonResult(map[string]any{"steps": steps, "hops": len(steps)})
}

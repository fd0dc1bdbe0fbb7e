// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hybridrag/pkg/engine"
)

func TestLocalQuery_UnknownDatabaseReportsError(t *testing.T) {
	env := newTestEnv(t)
	res, err := LocalQuery(context.Background(), env.deps, LocalQueryArgs{Database: "missing", Text: "alpha"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestLocalQuery_MatchesSeededContent(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocs("alpha content", "beta content")

	res, err := LocalQuery(context.Background(), env.deps, LocalQueryArgs{Database: env.rec.Name, Text: "alpha"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var result engine.QueryResult
	require.NoError(t, json.Unmarshal([]byte(res.Text), &result))
	assert.Contains(t, result.Text, "local")
	assert.Contains(t, result.Text, "1 matching")
}

func TestExtractContext_InvalidModeIsAnError(t *testing.T) {
	env := newTestEnv(t)
	res, err := ExtractContext(context.Background(), env.deps, ExtractContextArgs{Database: env.rec.Name, Text: "alpha", Mode: "bogus"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestExtractContext_ValidModeDelegatesToEngine(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocs("gamma content")

	res, err := ExtractContext(context.Background(), env.deps, ExtractContextArgs{Database: env.rec.Name, Text: "gamma", Mode: "hybrid"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var result engine.QueryResult
	require.NoError(t, json.Unmarshal([]byte(res.Text), &result))
	assert.Contains(t, result.Text, "hybrid")
}

func TestGlobalQueryAndHybridQuery_RunAgainstEngine(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocs("delta content")

	gres, err := GlobalQuery(context.Background(), env.deps, GlobalQueryArgs{Database: env.rec.Name, Text: "delta"})
	require.NoError(t, err)
	require.False(t, gres.IsError)

	hres, err := HybridQuery(context.Background(), env.deps, HybridQueryArgs{Database: env.rec.Name, Text: "delta"})
	require.NoError(t, err)
	require.False(t, hres.IsError)
}

func TestMultihopQuery_StopsEarlyWhenResultStabilizes(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocs("epsilon content")

	res, err := MultihopQuery(context.Background(), env.deps, MultihopQueryArgs{Database: env.rec.Name, Text: "epsilon", MaxSteps: 5})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body struct {
		Steps []multihopStep `json:"steps"`
		Hops  int            `json:"hops"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Text), &body))
	assert.GreaterOrEqual(t, body.Hops, 1)
	assert.Less(t, body.Hops, 5, "a stable single-document corpus should converge before the max step count")
}

func TestMultihopQuery_CapsAtHardMaxHops(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocs("zeta content")

	res, err := MultihopQuery(context.Background(), env.deps, MultihopQueryArgs{Database: env.rec.Name, Text: "zeta", MaxSteps: 1000})
	require.NoError(t, err)

	var body struct {
		Hops int `json:"hops"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Text), &body))
	assert.LessOrEqual(t, body.Hops, hardMaxHops)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"context"
	"fmt"

	"github.com/kraklabs/hybridrag/pkg/engine"
	"github.com/kraklabs/hybridrag/pkg/engine/jsonengine"
	"github.com/kraklabs/hybridrag/pkg/engine/pgengine"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// defaultVectorDimension is used by both reference engines when a
// database record doesn't request a specific one; embedding
// dimensionality is left to the engine implementation.
const defaultVectorDimension = 64

// OpenEngine constructs the engine.Engine selected by rec.Backend.Kind.
// This lives in pkg/ingest rather than pkg/engine because jsonengine and
// pgengine both import pkg/engine for the contract types, which would
// make pkg/engine importing them back a cycle; pkg/ingest is the natural
// higher-level home since constructing an engine from a registry record
// is already its job. Exported so pkg/tools can open the same engine
// instances for read-only query operations.
func OpenEngine(ctx context.Context, rec *registry.DatabaseRecord) (engine.Engine, error) {
	switch rec.Backend.Kind {
	case registry.BackendPostgres:
		pg := rec.Backend.Postgres
		if pg == nil {
			return nil, fmt.Errorf("ingest: database %q: backend postgres selected but no postgres config set", rec.Name)
		}
		cfg := pgengine.Config{
			Host:      pg.Host,
			Port:      pg.Port,
			Database:  pg.Database,
			User:      pg.User,
			Password:  pg.ResolvePassword(rec.Name),
			SSLMode:   pg.SSLMode,
			Dimension: defaultVectorDimension,
		}
		return pgengine.Open(ctx, cfg)

	case registry.BackendJSON, "":
		return jsonengine.Open(rec.Path, defaultVectorDimension)

	default:
		return nil, fmt.Errorf("ingest: database %q: unknown backend %q", rec.Name, rec.Backend.Kind)
	}
}

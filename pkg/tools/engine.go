// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"context"
	"fmt"

	"github.com/kraklabs/hybridrag/pkg/engine"
	"github.com/kraklabs/hybridrag/pkg/engine/jsonengine"
	"github.com/kraklabs/hybridrag/pkg/engine/pgengine"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// queryVectorDimension matches ingest's defaultVectorDimension; only the
// Postgres backend's Open needs it (to validate the vector(N) column),
// and only to read, so a mismatch here cannot corrupt data the way it
// would during Insert.
const queryVectorDimension = 64

// defaultEngineFor is the EngineResolver used when Deps doesn't supply
// one: a standalone query-tool process not co-located with the
// database's Watcher. jsonengine databases are opened read-only with a
// short flock timeout (jsonengine.OpenReadOnly) so a live watcher's
// exclusive lock surfaces as a fast, clear error instead of the 5s stall
// Open uses; Postgres databases are opened the normal way since pgx
// serves concurrent readers and writers without an equivalent file lock.
func defaultEngineFor(ctx context.Context, rec *registry.DatabaseRecord) (engine.Engine, func(), error) {
	switch rec.Backend.Kind {
	case registry.BackendPostgres:
		pg := rec.Backend.Postgres
		if pg == nil {
			return nil, nil, fmt.Errorf("tools: database %q: backend postgres selected but no postgres config set", rec.Name)
		}
		cfg := pgengine.Config{
			Host:      pg.Host,
			Port:      pg.Port,
			Database:  pg.Database,
			User:      pg.User,
			Password:  pg.ResolvePassword(rec.Name),
			SSLMode:   pg.SSLMode,
			Dimension: queryVectorDimension,
		}
		eng, err := pgengine.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return eng, func() { _ = eng.Close() }, nil

	case registry.BackendJSON, "":
		eng, err := jsonengine.OpenReadOnly(rec.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("tools: open %q read-only: %w (if a watcher for this database is running in this same process, configure Deps.EngineFor to share its engine instance instead)", rec.Name, err)
		}
		return eng, func() { _ = eng.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("tools: database %q: unknown backend %q", rec.Name, rec.Backend.Kind)
	}
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/pkg/ingest"
	"github.com/kraklabs/hybridrag/pkg/lock"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// lockRunning reports whether db currently has a live watcher/ingest
// process holding its lock, per C2's is_running check.
func lockRunning(e *env, db string) (bool, int) {
	return lock.IsRunning(e.paths.PIDPath(db))
}

// ingestDeps builds the Deps bundle shared by every ingest.* entry point
// (RunOnce, Watcher, RunEnrichment) from the CLI's env.
func ingestDeps(e *env) ingest.Deps {
	return ingest.Deps{
		Registry: e.registry,
		Paths:    e.paths,
		Alerts:   e.alertMgr,
		Sampler:  monitor.NewProcLoadSampler(),
		Logger:   e.logger,
	}
}

// registryRecordOrFatal resolves name to a record, exiting the process
// via errors.FatalError on a miss.
func registryRecordOrFatal(e *env, name string) *registry.DatabaseRecord {
	rec, err := e.resolveDatabase(name)
	if err != nil {
		errors.FatalError(err, e.globals.JSON)
	}
	return rec
}

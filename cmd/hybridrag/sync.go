// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/internal/output"
	"github.com/kraklabs/hybridrag/internal/ui"
	"github.com/kraklabs/hybridrag/pkg/ingest"
)

// runSync implements `hybridrag sync <db> [--fresh]`: a forced re-ingest,
// defaulting to a full rescan unlike `ingest` which resumes when possible.
func runSync(args []string, e *env) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	fresh := fs.Bool("fresh", true, "Discard any resumable pending list and rescan from scratch")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hybridrag sync <db> [--fresh=false]\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitConfig)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		fs.Usage()
		os.Exit(errors.ExitConfig)
	}
	db := positional[0]
	rec := registryRecordOrFatal(e, db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !e.globals.Quiet && !e.globals.JSON {
		ui.Info(fmt.Sprintf("Re-syncing %q", db))
	}

	stats, err := ingest.RunOnce(ctx, db, rec, ingestDeps(e), *fresh)
	if err != nil {
		errors.FatalError(ingestRunError(db, err), e.globals.JSON)
	}

	if e.globals.JSON {
		_ = output.JSON(stats)
		return
	}
	ui.Success(fmt.Sprintf("Synced %d files (%d duplicates skipped, %d errors)", stats.Ingested, stats.DuplicatesSkipped, stats.Errors))
}

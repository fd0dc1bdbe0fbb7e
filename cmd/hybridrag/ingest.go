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
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// runIngest implements `hybridrag ingest <db> [--folder p]
// [--fresh|--add|--use]`: one-shot discover-then-batch without entering
// watch mode (§6.3).
func runIngest(args []string, e *env) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	folder := fs.String("folder", "", "Override the registered source folder for this run")
	fresh := fs.Bool("fresh", false, "Discard any resumable pending list and rescan from scratch")
	add := fs.Bool("add", false, "Alias for the default: resume an existing pending list, or discover when there is none")
	use := fs.String("use", "", "Alias for --folder")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hybridrag ingest <db> [--folder path] [--fresh|--add|--use path]\n")
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
	_ = add // --add is the implicit default behavior; accepted for symmetry with --fresh

	rec := registryRecordOrFatal(e, db)

	sourceFolder := *folder
	if sourceFolder == "" {
		sourceFolder = *use
	}
	if sourceFolder != "" && sourceFolder != rec.SourceFolder {
		newFolder := sourceFolder
		updated, err := e.registry.Update(db, registry.UpdateFields{SourceFolder: &newFolder})
		if err != nil {
			errors.FatalError(registrationError(db, err), e.globals.JSON)
		}
		rec = updated
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !e.globals.Quiet && !e.globals.JSON {
		ui.Info(fmt.Sprintf("Ingesting %q from %s", db, rec.SourceFolder))
	}

	stats, err := ingest.RunOnce(ctx, db, rec, ingestDeps(e), *fresh)
	if err != nil {
		errors.FatalError(ingestRunError(db, err), e.globals.JSON)
	}

	if e.globals.JSON {
		_ = output.JSON(stats)
		return
	}
	ui.Success(fmt.Sprintf("Ingested %d files (%d duplicates skipped, %d errors)", stats.Ingested, stats.DuplicatesSkipped, stats.Errors))
	if stats.Errors > 0 {
		ui.Warning("Last error: " + stats.LastError)
	}
}

func ingestRunError(db string, err error) *errors.UserError {
	if err == ingest.ErrLockContention {
		return errors.NewLockError(
			fmt.Sprintf("Database %q is locked by another process", db),
			err.Error(),
			"Run: hybridrag watch status "+db,
		)
	}
	return errors.NewRuntimeError(fmt.Sprintf("Ingestion failed for %q", db), err.Error(), "Check the logs: hybridrag --json status", err)
}

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

// runEnrich implements `hybridrag enrich <db> [--limit n] [--dry-run]
// [--status]` (§4.4.8 enrichment worker).
func runEnrich(args []string, e *env) {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Stop after enriching this many documents (0 means no limit)")
	dryRun := fs.Bool("dry-run", false, "Report what would be enriched without writing anything")
	status := fs.Bool("status", false, "Report queue depth without enriching anything")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hybridrag enrich <db> [--limit n] [--dry-run] [--status]\n")
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
	deps := ingestDeps(e)

	if *status {
		pending, done, err := ingest.EnrichmentStatus(deps, db)
		if err != nil {
			errors.FatalError(errors.NewRuntimeError("Cannot read enrichment queue", err.Error(), "Check the state directory", err), e.globals.JSON)
		}
		if e.globals.JSON {
			_ = output.JSON(map[string]int{"pending": pending, "done": done})
			return
		}
		fmt.Printf("  %s %d pending / %d done\n", ui.Label("Enrichment queue:"), pending, done)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := ingest.RunEnrichment(ctx, db, rec, deps, ingest.EnrichmentOptions{Limit: *limit, DryRun: *dryRun})
	if err != nil {
		errors.FatalError(errors.NewRuntimeError(fmt.Sprintf("Enrichment failed for %q", db), err.Error(), "Retry: hybridrag enrich "+db, err), e.globals.JSON)
	}

	if e.globals.JSON {
		_ = output.JSON(result)
		return
	}
	ui.Success(fmt.Sprintf("Enriched %d/%d (tombstoned %d, failed %d, %d remaining)",
		result.Enriched, result.Considered, result.Tombstoned, result.Failed, result.Remaining))
}

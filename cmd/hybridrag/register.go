// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/internal/output"
	"github.com/kraklabs/hybridrag/internal/ui"
	"github.com/kraklabs/hybridrag/pkg/dbmeta"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// runRegister implements `hybridrag register <db> --folder <path>
// [options]`, creating a new C1 registry entry.
func runRegister(args []string, e *env) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	folder := fs.String("folder", "", "Source folder to ingest (required)")
	backend := fs.String("backend", "json", "Storage backend: json or postgres")
	sourceType := fs.String("source-type", "filesystem", "Source type: filesystem, specstory, api, schema")
	autoWatch := fs.Bool("auto-watch", false, "Start a watcher automatically for this database")
	watchInterval := fs.Int("watch-interval-sec", 30, "Watch-mode poll interval in seconds")
	recursive := fs.Bool("recursive", true, "Scan the source folder recursively")
	extensions := fs.String("extensions", "", "Comma-separated file extensions to include (empty means all)")
	model := fs.String("model", "", "Embedding model identifier")
	description := fs.String("description", "", "Free-text description")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: hybridrag register <db> --folder <path> [options]

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitConfig)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		fs.Usage()
		os.Exit(errors.ExitConfig)
	}
	name := positional[0]

	if *folder == "" {
		errors.FatalError(errors.NewInputError(
			"Missing --folder",
			"register requires a source folder to ingest",
			"hybridrag register <db> --folder /path/to/docs",
		), e.globals.JSON)
	}

	rec := registry.DatabaseRecord{
		Name:             name,
		Path:             registryDataPath(e, name),
		SourceFolder:     *folder,
		SourceType:       registry.SourceType(*sourceType),
		AutoWatch:        *autoWatch,
		WatchIntervalSec: *watchInterval,
		Recursive:        *recursive,
		Model:            *model,
		Backend:          registry.Backend{Kind: registry.BackendKind(*backend)},
		Thresholds:       registry.DefaultThresholds(),
		Description:      *description,
	}
	if *extensions != "" {
		rec.FileExtensions = strings.Split(*extensions, ",")
	}

	created, err := e.registry.Register(rec)
	if err != nil {
		errors.FatalError(registrationError(name, err), e.globals.JSON)
	}

	if _, err := dbmeta.Open(created.Path); err != nil {
		e.logger.Warn("failed to initialize database metadata", "database", name, "error", err)
	}

	if e.globals.JSON {
		_ = output.JSON(created)
		return
	}
	ui.Success(fmt.Sprintf("Registered database %q", name))
	fmt.Printf("  %s %s\n", ui.Label("Path:"), created.Path)
	fmt.Printf("  %s %s\n", ui.Label("Source folder:"), created.SourceFolder)
}

// registryDataPath computes <state_root>/db_data/<name>, the default
// storage location for a JSON-backed database.
func registryDataPath(e *env, name string) string {
	return e.paths.Root + "/db_data/" + name
}

func registrationError(name string, err error) *errors.UserError {
	switch err.(type) {
	case *registry.ErrAlreadyExists:
		return errors.NewInputError(
			fmt.Sprintf("Database %q already exists", name),
			err.Error(),
			"Use a different name, or run: hybridrag update "+name,
		)
	case *registry.ErrInvalidName:
		return errors.NewInputError(
			fmt.Sprintf("Invalid database name %q", name),
			err.Error(),
			"Names must be lowercase alphanumerics and dashes, starting and ending with an alphanumeric",
		)
	default:
		return errors.NewConfigError("Cannot register database", err.Error(), "Check the registry file permissions", err)
	}
}

// runUnregister implements `hybridrag unregister <db>`.
func runUnregister(args []string, e *env) {
	fs := flag.NewFlagSet("unregister", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm removal")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hybridrag unregister <db> --yes\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitConfig)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		fs.Usage()
		os.Exit(errors.ExitConfig)
	}
	name := positional[0]

	if !*confirm {
		errors.FatalError(errors.NewInputError(
			"Confirmation required",
			"unregister removes the registry entry (not the underlying data)",
			"hybridrag unregister "+name+" --yes",
		), e.globals.JSON)
	}

	if err := e.registry.Unregister(name); err != nil {
		errors.FatalError(registrationError(name, err), e.globals.JSON)
	}
	ui.Success(fmt.Sprintf("Unregistered database %q (data on disk is untouched)", name))
}

// runList implements `hybridrag list` / `list-dbs`.
func runList(args []string, e *env) {
	recs := e.registry.List()
	if e.globals.JSON {
		_ = output.JSON(recs)
		return
	}
	if len(recs) == 0 {
		ui.Info("No databases registered. Run: hybridrag register <db> --folder <path>")
		return
	}
	ui.Header("Registered databases")
	for _, r := range recs {
		running, pid := lockRunning(e, r.Name)
		state := ui.DimText("stopped")
		if running {
			state = fmt.Sprintf("%s (pid %d)", ui.Green.Sprint("running"), pid)
		}
		fmt.Printf("  %-20s %-10s %s\n", r.Name, state, ui.DimText(r.SourceFolder))
	}
}

// runShow implements `hybridrag show <db>` / `db-info <db>`: the full
// registry record plus ingestion-history stats from dbmeta (§C).
func runShow(args []string, e *env) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag show <db>")
		os.Exit(errors.ExitConfig)
	}
	rec, err := e.resolveDatabase(args[0])
	if err != nil {
		errors.FatalError(err, e.globals.JSON)
	}

	meta, merr := dbmeta.Open(rec.Path)
	var stats dbmeta.Stats
	if merr == nil {
		stats = meta.GetStats()
	}

	if e.globals.JSON {
		_ = output.JSON(struct {
			*registry.DatabaseRecord
			Stats dbmeta.Stats `json:"stats"`
		}{rec, stats})
		return
	}

	ui.Header(fmt.Sprintf("Database: %s", rec.Name))
	fmt.Printf("  %s %s\n", ui.Label("Path:"), rec.Path)
	fmt.Printf("  %s %s\n", ui.Label("Source folder:"), rec.SourceFolder)
	fmt.Printf("  %s %s\n", ui.Label("Source type:"), rec.SourceType)
	fmt.Printf("  %s %s\n", ui.Label("Backend:"), rec.Backend.Kind)
	fmt.Printf("  %s %v (interval %ds)\n", ui.Label("Auto-watch:"), rec.AutoWatch, rec.WatchIntervalSec)
	fmt.Printf("  %s %d\n", ui.Label("Files ingested:"), stats.TotalFilesIngested)
	fmt.Printf("  %s %d\n", ui.Label("Ingestion events:"), stats.IngestionEvents)
	if rec.Description != "" {
		fmt.Printf("  %s %s\n", ui.Label("Description:"), rec.Description)
	}
}

// runUpdate implements `hybridrag update <db> [options]`.
func runUpdate(args []string, e *env) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	folder := fs.String("folder", "", "New source folder")
	autoWatch := fs.String("auto-watch", "", "true|false")
	watchInterval := fs.Int("watch-interval-sec", 0, "New watch interval (0 leaves unchanged)")
	description := fs.String("description", "", "New description")
	rename := fs.String("rename", "", "New database name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hybridrag update <db> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitConfig)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		fs.Usage()
		os.Exit(errors.ExitConfig)
	}
	name := positional[0]

	var fields registry.UpdateFields
	if *folder != "" {
		fields.SourceFolder = folder
	}
	if *autoWatch != "" {
		v := *autoWatch == "true"
		fields.AutoWatch = &v
	}
	if *watchInterval > 0 {
		fields.WatchIntervalSec = watchInterval
	}
	if *description != "" {
		fields.Description = description
	}
	if *rename != "" {
		fields.NewName = rename
	}

	updated, err := e.registry.Update(name, fields)
	if err != nil {
		errors.FatalError(registrationError(name, err), e.globals.JSON)
	}

	if e.globals.JSON {
		_ = output.JSON(updated)
		return
	}
	ui.Success(fmt.Sprintf("Updated database %q", updated.Name))
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command hybridrag is the operator CLI for the ingestion control plane
// (§6.3): registry CRUD, one-shot ingestion, watcher daemon lifecycle,
// diagnostics, alerts, enrichment, and the §6.4 MCP query server.
//
// Usage:
//
//	hybridrag register <db> --folder <path> [options]
//	hybridrag ingest <db> [--folder <path>] [--fresh|--add|--use]
//	hybridrag watch start <db>|--all
//	hybridrag sync <db> [--fresh]
//	hybridrag status
//	hybridrag --mcp
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/internal/logging"
	"github.com/kraklabs/hybridrag/internal/ui"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries the options every subcommand inherits.
type GlobalFlags struct {
	JSON     bool
	NoColor  bool
	Quiet    bool
	StateDir string
}

func main() {
	args := os.Args[1:]

	globals := GlobalFlags{}
	args = extractGlobalFlags(args, &globals)
	ui.InitColors(globals.NoColor)

	if len(args) == 0 {
		printUsage()
		os.Exit(errors.ExitConfig)
	}

	if args[0] == "--version" {
		fmt.Printf("hybridrag version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		return
	}
	if args[0] == "--mcp" {
		runMCP(globals)
		return
	}

	command := args[0]
	cmdArgs := args[1:]

	env, err := newEnv(globals)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	switch command {
	case "register":
		runRegister(cmdArgs, env)
	case "unregister":
		runUnregister(cmdArgs, env)
	case "list", "list-dbs":
		runList(cmdArgs, env)
	case "show", "db-info":
		runShow(cmdArgs, env)
	case "update":
		runUpdate(cmdArgs, env)
	case "ingest":
		runIngest(cmdArgs, env)
	case "sync":
		runSync(cmdArgs, env)
	case "watch":
		runWatch(cmdArgs, env)
	case "check-db":
		runCheckDB(cmdArgs, env)
	case "status":
		runStatus(cmdArgs, env)
	case "alerts":
		runAlerts(cmdArgs, env)
	case "enrich":
		runEnrich(cmdArgs, env)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(errors.ExitConfig)
	}
}

// extractGlobalFlags pulls --json/--no-color/-q/--state-dir out of args
// wherever they appear, leaving the subcommand and its own flags intact,
// so global flags can be given before or after the subcommand name.
func extractGlobalFlags(args []string, g *GlobalFlags) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			g.JSON = true
		case "--no-color":
			g.NoColor = true
		case "-q", "--quiet":
			g.Quiet = true
		case "--state-dir":
			if i+1 < len(args) {
				g.StateDir = args[i+1]
				i++
			}
		default:
			out = append(out, args[i])
		}
	}
	return out
}

func printUsage() {
	fmt.Fprint(os.Stderr, `hybridrag - RAG ingestion control plane CLI

Usage:
  hybridrag <command> [options]

Registry:
  register <db> --folder <path>   Register a new database
  unregister <db>                 Remove a database from the registry
  list | list-dbs                 List registered databases
  show <db> | db-info <db>        Show one database's full record and stats
  update <db> [options]           Update a database's registry fields

Ingestion:
  ingest <db> [--folder p] [--fresh|--add|--use]   One-shot batch ingest
  sync <db> [--fresh]                              Forced re-ingest

Watcher daemon:
  watch start <db>|--all          Run the watcher daemon in the foreground
  watch stop <db>|--all           Signal a running watcher to stop
  watch status [<db>]             Report running/auto_watch/interval state
  watch pause <db>                Suspend a running watcher before its next file
  watch resume <db>                Clear a pause request

Diagnostics:
  check-db <db>                   Deep diagnostic: lock, pending, storage
  status                          Health summary across all databases
  alerts [list|summary|ack <id>]  Inspect or acknowledge alerts

Enrichment:
  enrich <db> [--limit n] [--dry-run] [--status]   Run the enrichment worker

Query server:
  --mcp                           Serve the query tool surface over stdio

Global options:
  --json              Machine-readable output
  --no-color          Disable colored terminal output
  -q, --quiet         Suppress progress bars
  --state-dir <path>  Override the default ~/.hybridrag state root
  --version           Show version and exit
`)
}

// env bundles everything a subcommand needs: the registry, state paths,
// alert store/manager, and a logger, built once per invocation.
type env struct {
	globals  GlobalFlags
	paths    *registry.StatePaths
	registry *registry.Registry
	alerts   *monitor.AlertStore
	alertMgr *monitor.AlertManager
	logger   *slog.Logger
}

func newEnv(globals GlobalFlags) (*env, error) {
	stateRoot := globals.StateDir
	if stateRoot == "" {
		root, err := registry.DefaultStateRoot()
		if err != nil {
			return nil, errors.NewInternalError("Cannot resolve state directory", err.Error(), "Set --state-dir explicitly", err)
		}
		stateRoot = root
	}

	paths, err := registry.NewStatePaths(stateRoot)
	if err != nil {
		return nil, errors.NewInternalError("Cannot build state paths", err.Error(), "Check that the state directory is writable", err)
	}

	logger := logging.New(logging.Config{JSON: globals.JSON, Level: slog.LevelInfo})

	reg, err := registry.Open(paths.RegistryPath)
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot load the database registry",
			err.Error(),
			fmt.Sprintf("Check that %s is valid YAML, or run: hybridrag register", paths.RegistryPath),
			err,
		)
	}

	alertStore, err := monitor.OpenAlertStore(paths.AlertsPath)
	if err != nil {
		return nil, errors.NewConfigError("Cannot load the alert store", err.Error(), "Check that alerts.json is valid JSON", err)
	}

	return &env{
		globals:  globals,
		paths:    paths,
		registry: reg,
		alerts:   alertStore,
		alertMgr: monitor.NewAlertManager(alertStore, logger),
		logger:   logger,
	}, nil
}

// resolveDatabase looks up name, returning a UserError with a "did you
// mean" suggestion (§B go-edlib) when the name is close to a registered
// one but not exact.
func (e *env) resolveDatabase(name string) (*registry.DatabaseRecord, error) {
	rec := e.registry.Get(name)
	if rec != nil {
		return rec, nil
	}

	fix := "Run: hybridrag list"
	if suggestion := registry.SuggestName(name, e.registry.Names()); suggestion != "" {
		fix = fmt.Sprintf("Did you mean %q? Run: hybridrag list", suggestion)
	}
	return nil, errors.NewNotFoundError(
		fmt.Sprintf("No database named %q", name),
		"the name is not present in the registry",
		fix,
	)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/internal/logging"
	"github.com/kraklabs/hybridrag/internal/output"
	"github.com/kraklabs/hybridrag/internal/ui"
	"github.com/kraklabs/hybridrag/pkg/ingest"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// runWatch implements `hybridrag watch <start|stop|status|pause|resume>`.
func runWatch(args []string, e *env) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag watch <start|stop|status|pause|resume> <db>|--all")
		os.Exit(errors.ExitConfig)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "start":
		watchStart(rest, e)
	case "stop":
		watchStop(rest, e)
	case "status":
		watchStatus(rest, e)
	case "pause":
		watchPause(rest, e)
	case "resume":
		watchResume(rest, e)
	default:
		fmt.Fprintf(os.Stderr, "Unknown watch subcommand: %s\n", sub)
		os.Exit(errors.ExitConfig)
	}
}

// watchStart runs the watcher daemon in the foreground for one database,
// or (with --all) for every registered database concurrently, exiting
// once all of them stop (normally via SIGTERM/SIGINT).
func watchStart(args []string, e *env) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag watch start <db>|--all")
		os.Exit(errors.ExitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recs []*registry.DatabaseRecord
	if args[0] == "--all" {
		recs = e.registry.List()
		if len(recs) == 0 {
			ui.Info("No databases registered")
			return
		}
	} else {
		recs = []*registry.DatabaseRecord{registryRecordOrFatal(e, args[0])}
	}

	// The watcher is a daemon: log JSON to stderr and the rotating log file.
	e.logger = logging.New(logging.Config{JSON: true, Level: slog.LevelInfo, LogFile: e.paths.LogPath})

	deps := ingestDeps(e)
	g, gctx := errgroup.WithContext(ctx)
	for _, rec := range recs {
		rec := rec
		g.Go(func() error {
			w, err := ingest.New(rec.Name, rec, deps)
			if err != nil {
				return fmt.Errorf("%s: %w", rec.Name, err)
			}
			e.logger.Info("watcher starting", "database", rec.Name)
			if err := w.Run(gctx); err != nil {
				return fmt.Errorf("%s: %w", rec.Name, err)
			}
			e.logger.Info("watcher stopped", "database", rec.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errors.FatalError(errors.NewRuntimeError("Watcher exited with an error", err.Error(), "Check: hybridrag --json status", err), e.globals.JSON)
	}
}

// watchStop signals a running watcher (or every running watcher, with
// --all) to stop by sending SIGTERM to the PID recorded in its lock file;
// the watcher's own signal handling (mirrored from Run's ctx-cancellation
// path) then performs a clean shutdown.
func watchStop(args []string, e *env) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag watch stop <db>|--all")
		os.Exit(errors.ExitConfig)
	}

	var names []string
	if args[0] == "--all" {
		names = e.registry.Names()
	} else {
		registryRecordOrFatal(e, args[0])
		names = []string{args[0]}
	}

	stopped := 0
	for _, name := range names {
		running, pid := lockRunning(e, name)
		if !running {
			continue
		}
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			ui.Warning(fmt.Sprintf("Could not signal %q (pid %d): %v", name, pid, err))
			continue
		}
		stopped++
		ui.Success(fmt.Sprintf("Sent stop signal to %q (pid %d)", name, pid))
	}
	if stopped == 0 {
		ui.Info("No running watchers found")
	}
}

// watchStatusEntry is the §6.3 documented shape for `watch status`.
type watchStatusEntry struct {
	Database         string `json:"database"`
	Running          bool   `json:"running"`
	PID              int    `json:"pid,omitempty"`
	Mode             string `json:"mode"`
	AutoWatch        bool   `json:"auto_watch"`
	WatchIntervalSec int    `json:"watch_interval_sec"`
	SourceFolder     string `json:"source_folder"`
}

func watchStatus(args []string, e *env) {
	var recs []*registry.DatabaseRecord
	if len(args) == 0 {
		recs = e.registry.List()
	} else {
		recs = []*registry.DatabaseRecord{registryRecordOrFatal(e, args[0])}
	}

	entries := make([]watchStatusEntry, 0, len(recs))
	for _, rec := range recs {
		running, pid := lockRunning(e, rec.Name)
		mode := "null"
		if running {
			mode = "standalone"
		}
		entries = append(entries, watchStatusEntry{
			Database:         rec.Name,
			Running:          running,
			PID:              pid,
			Mode:             mode,
			AutoWatch:        rec.AutoWatch,
			WatchIntervalSec: rec.WatchIntervalSec,
			SourceFolder:     rec.SourceFolder,
		})
	}

	if e.globals.JSON {
		_ = output.JSON(entries)
		return
	}
	for _, ent := range entries {
		state := ui.DimText("stopped")
		if ent.Running {
			state = fmt.Sprintf("%s (pid %d)", ui.Green.Sprint("running"), ent.PID)
		}
		fmt.Printf("  %-20s %-22s auto_watch=%v interval=%ds\n", ent.Database, state, ent.AutoWatch, ent.WatchIntervalSec)
	}
}

// watchPause writes the pause-request file a running watcher polls for at
// its next suspension point (§C watcher pause/resume IPC), then waits up
// to 10s for the acknowledgement file the watcher writes back.
func watchPause(args []string, e *env) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag watch pause <db>")
		os.Exit(errors.ExitConfig)
	}
	db := args[0]
	registryRecordOrFatal(e, db)

	if err := os.MkdirAll(e.paths.WatcherCtrlDir, 0o750); err != nil {
		errors.FatalError(errors.NewInternalError("Cannot write pause request", err.Error(), "Check state directory permissions", err), e.globals.JSON)
	}
	if err := os.WriteFile(e.paths.PausePath(db), []byte(time.Now().UTC().Format(time.RFC3339)), 0o600); err != nil {
		errors.FatalError(errors.NewInternalError("Cannot write pause request", err.Error(), "Check state directory permissions", err), e.globals.JSON)
	}

	running, _ := lockRunning(e, db)
	if !running {
		ui.Info("Pause request recorded; no watcher is currently running")
		return
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(e.paths.PauseAckPath(db)); err == nil {
			ui.Success(fmt.Sprintf("Watcher for %q paused", db))
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	ui.Warning("Pause request sent but not yet acknowledged; the watcher may be mid-batch")
}

// watchResume clears a pause request, unblocking the watcher's checkpoint
// wait.
func watchResume(args []string, e *env) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag watch resume <db>")
		os.Exit(errors.ExitConfig)
	}
	db := args[0]
	registryRecordOrFatal(e, db)

	if err := os.Remove(e.paths.PausePath(db)); err != nil && !os.IsNotExist(err) {
		errors.FatalError(errors.NewInternalError("Cannot clear pause request", err.Error(), "Check state directory permissions", err), e.globals.JSON)
	}
	_ = os.Remove(e.paths.PauseAckPath(db))
	ui.Success(fmt.Sprintf("Resumed %q", db))
}

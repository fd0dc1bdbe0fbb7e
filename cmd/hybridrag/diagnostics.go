// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/internal/output"
	"github.com/kraklabs/hybridrag/internal/ui"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/tools"
)

func toolsDeps(e *env) tools.Deps {
	return tools.Deps{
		Registry: e.registry,
		Paths:    e.paths,
		Alerts:   e.alerts,
		Logger:   e.logger,
	}
}

// runStatus implements `hybridrag status`: the §6.4 health_check tool's
// output rendered for a terminal, covering every registered database.
func runStatus(args []string, e *env) {
	result, err := tools.HealthCheck(context.Background(), toolsDeps(e), tools.HealthCheckArgs{})
	if err != nil {
		errors.FatalError(errors.NewRuntimeError("Health check failed", err.Error(), "Retry, or check: hybridrag --json status", err), e.globals.JSON)
	}
	if e.globals.JSON {
		fmt.Println(result.Text)
		return
	}
	ui.Header("Database health")
	fmt.Println(result.Text)
}

// checkDBReport is the deep diagnostic result for one database (§C
// check-db): registry + lock state, pending/enrichment backlog depth and
// age, and one synchronous storage-size pass.
type checkDBReport struct {
	Database         string                  `json:"database"`
	Running          bool                    `json:"running"`
	PID              int                     `json:"pid,omitempty"`
	PendingFiles     int                     `json:"pending_files"`
	PendingAgeSec    float64                 `json:"pending_age_sec,omitempty"`
	EnrichPending    int                     `json:"enrich_pending"`
	EnrichDone       int                     `json:"enrich_done"`
	StorageWarnings  []monitor.StorageWarning `json:"storage_warnings,omitempty"`
	UnacknowledgedAt int                     `json:"unacknowledged_alerts"`
}

// runCheckDB implements `hybridrag check-db <db>`.
func runCheckDB(args []string, e *env) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hybridrag check-db <db>")
		os.Exit(errors.ExitConfig)
	}
	db := args[0]
	rec := registryRecordOrFatal(e, db)

	report := checkDBReport{Database: db}
	report.Running, report.PID = lockRunning(e, db)

	if fi, err := os.Stat(e.paths.PendingPath(db)); err == nil {
		report.PendingAgeSec = time.Since(fi.ModTime()).Seconds()
		if n, err := countPendingEntries(e.paths.PendingPath(db)); err == nil {
			report.PendingFiles = n
		}
	}
	if n, err := countPendingEntries(e.paths.EnrichPendingPath(db)); err == nil {
		report.EnrichPending = n
	}
	if n, err := countPendingEntries(e.paths.EnrichDonePath(db)); err == nil {
		report.EnrichDone = n
	}

	warnings, err := monitor.CheckStorageSize(rec.Path, rec.Thresholds.FileWarnMB, rec.Thresholds.TotalWarnMB)
	if err != nil {
		e.logger.Warn("storage size check failed", "database", db, "error", err)
	}
	report.StorageWarnings = warnings

	report.UnacknowledgedAt = len(e.alerts.ByDatabase(db, false))

	if e.globals.JSON {
		_ = output.JSON(report)
		return
	}

	ui.Header(fmt.Sprintf("Diagnostic: %s", db))
	state := ui.DimText("stopped")
	if report.Running {
		state = fmt.Sprintf("%s (pid %d)", ui.Green.Sprint("running"), report.PID)
	}
	fmt.Printf("  %s %s\n", ui.Label("Watcher:"), state)
	fmt.Printf("  %s %d (age %.0fs)\n", ui.Label("Pending files:"), report.PendingFiles, report.PendingAgeSec)
	fmt.Printf("  %s %d pending / %d done\n", ui.Label("Enrichment:"), report.EnrichPending, report.EnrichDone)
	fmt.Printf("  %s %d\n", ui.Label("Unacknowledged alerts:"), report.UnacknowledgedAt)
	if len(report.StorageWarnings) == 0 {
		ui.Success("No storage warnings")
	} else {
		for _, w := range report.StorageWarnings {
			ui.Warningf("%s: %s (%.1f MB)", w.Severity, w.Message, w.SizeMB)
		}
	}
}

func countPendingEntries(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	count := 0
	for _, b := range data {
		if b == '\n' {
			count++
		}
	}
	return count, nil
}

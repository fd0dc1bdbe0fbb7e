// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kraklabs/hybridrag/pkg/dbmeta"
	"github.com/kraklabs/hybridrag/pkg/lock"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// DatabaseStatusArgs selects the scope of a database_status call. An
// empty Database reports every registered database.
type DatabaseStatusArgs struct {
	Database string `json:"database,omitempty"`
}

// databaseStatusEntry is the per-database shape, matching the watch
// status fields named in §6.3 (running, pid, auto_watch,
// watch_interval_sec, source_folder) plus the ingestion-history summary
// dbmeta.Metadata.GetStats contributes.
type databaseStatusEntry struct {
	Name               string     `json:"name"`
	Running            bool       `json:"running"`
	PID                int        `json:"pid,omitempty"`
	AutoWatch          bool       `json:"auto_watch"`
	WatchIntervalSec   int        `json:"watch_interval_sec"`
	SourceFolder       string     `json:"source_folder,omitempty"`
	Backend            string     `json:"backend"`
	TotalFilesIngested int        `json:"total_files_ingested"`
	IngestionEvents    int        `json:"ingestion_events"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty"`
	Description        string     `json:"description,omitempty"`
}

func buildStatusEntry(deps Deps, rec *registry.DatabaseRecord) databaseStatusEntry {
	entry := databaseStatusEntry{
		Name:             rec.Name,
		AutoWatch:        rec.AutoWatch,
		WatchIntervalSec: rec.WatchIntervalSec,
		SourceFolder:     rec.SourceFolder,
		Backend:          string(rec.Backend.Kind),
		LastSyncAt:       rec.LastSyncAt,
		Description:      rec.Description,
	}
	if deps.Paths != nil {
		entry.Running, entry.PID = lock.IsRunning(deps.Paths.PIDPath(rec.Name))
	}
	if m, err := dbmeta.Open(rec.Path); err == nil {
		stats := m.GetStats()
		entry.TotalFilesIngested = stats.TotalFilesIngested
		entry.IngestionEvents = stats.IngestionEvents
	}
	return entry
}

// DatabaseStatus implements the database_status tool (§6.4): a fast
// summary of watcher state and ingestion counts, deliberately avoiding
// any engine open so it stays cheap even while a Watcher holds the
// database's exclusive lock.
func DatabaseStatus(ctx context.Context, deps Deps, args DatabaseStatusArgs) (*ToolResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if deps.Registry == nil {
		return NewError("tools: no registry configured"), nil
	}

	if args.Database != "" {
		rec, errResult := deps.lookupDatabase(args.Database)
		if errResult != nil {
			return errResult, nil
		}
		entry := buildStatusEntry(deps, rec)
		return jsonResult(entry)
	}

	recs := deps.Registry.List()
	entries := make([]databaseStatusEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, buildStatusEntry(deps, rec))
	}
	return jsonResult(map[string]any{"databases": entries, "count": len(entries)})
}

// HealthCheckArgs optionally scopes health_check to one database; empty
// reports the process-wide view (every database's running state plus
// the shared alert summary).
type HealthCheckArgs struct {
	Database string `json:"database,omitempty"`
}

type healthCheckResult struct {
	Healthy   bool                `json:"healthy"`
	Databases []databaseRunStatus `json:"databases"`
	Alerts    alertSummaryView    `json:"alerts"`
}

type databaseRunStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

type alertSummaryView struct {
	Critical int `json:"critical"`
	Error    int `json:"error"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// HealthCheck implements the health_check tool (§6.4): fast, no engine
// access, combining C2's live-process check with C5's alert summary.
// Healthy means no registered database is down while auto_watch is set,
// and no unacknowledged critical alert is outstanding.
func HealthCheck(ctx context.Context, deps Deps, args HealthCheckArgs) (*ToolResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var recs []*registry.DatabaseRecord
	if args.Database != "" {
		rec, errResult := deps.lookupDatabase(args.Database)
		if errResult != nil {
			return errResult, nil
		}
		recs = []*registry.DatabaseRecord{rec}
	} else if deps.Registry != nil {
		recs = deps.Registry.List()
	}

	result := healthCheckResult{Healthy: true}
	for _, rec := range recs {
		running := false
		if deps.Paths != nil {
			running, _ = lock.IsRunning(deps.Paths.PIDPath(rec.Name))
		}
		result.Databases = append(result.Databases, databaseRunStatus{Name: rec.Name, Running: running})
		if rec.AutoWatch && !running {
			result.Healthy = false
		}
	}

	if deps.Alerts != nil {
		s := deps.Alerts.GetSummary()
		result.Alerts = alertSummaryView{Critical: s.Critical, Error: s.Error, Warning: s.Warning, Info: s.Info, Total: s.Total}
		if s.Critical > 0 {
			result.Healthy = false
		}
	}

	return jsonResult(result)
}

// jsonResult marshals data as the text of a successful ToolResult.
func jsonResult(data any) (*ToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("tools: marshal result: %w", err)
	}
	return NewResult(string(b)), nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package dbmeta tracks, per database, its watched source folders and an
// ingestion history. It is read by `db-info` and written by the ingestion
// engine, which records one history entry when a batch run completes and
// one after each watch cycle that processed files. The enrichment worker
// records no history entry.
package dbmeta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the schema version written to new metadata files.
const CurrentVersion = "1.0"

// SourceFolder records one watched source folder's history.
type SourceFolder struct {
	Path          string    `json:"path"`
	AddedAt       time.Time `json:"added_at"`
	LastIngested  time.Time `json:"last_ingested"`
	Recursive     bool      `json:"recursive"`
}

// Mode distinguishes which C4 mode produced a history entry.
type Mode string

const (
	ModeBatch      Mode = "batch"
	ModeWatch      Mode = "watch"
	ModeEnrichment Mode = "enrichment"
)

// HistoryEntry is one ingestion run record.
type HistoryEntry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	SourceFolder   string    `json:"source_folder"`
	Mode           Mode      `json:"mode"`
	FilesProcessed int       `json:"files_processed"`
	Errors         int       `json:"errors"`
	Success        bool      `json:"success"`
	Notes          string    `json:"notes,omitempty"`
}

// Stats is the summary view returned to db-info / database_status.
type Stats struct {
	CreatedAt           time.Time `json:"created_at"`
	LastUpdated         time.Time `json:"last_updated"`
	TotalFilesIngested  int       `json:"total_files_ingested"`
	SourceFoldersCount  int       `json:"source_folders_count"`
	IngestionEvents     int       `json:"ingestion_events"`
	Description         string    `json:"description"`
}

type fileShape struct {
	Version            string         `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	LastUpdated        time.Time      `json:"last_updated"`
	SourceFolders      []SourceFolder `json:"source_folders"`
	IngestionHistory   []HistoryEntry `json:"ingestion_history"`
	TotalFilesIngested int            `json:"total_files_ingested"`
	DatabaseType       string         `json:"database_type"`
	Description        string         `json:"description"`
}

// Metadata is the loaded, mutable metadata.json for one database directory.
type Metadata struct {
	path string
	data fileShape
}

// Open loads database_metadata.json from databaseDir, creating an empty
// in-memory default if it does not yet exist on disk (nothing is written
// until the first mutation).
func Open(databaseDir string) (*Metadata, error) {
	path := filepath.Join(databaseDir, "database_metadata.json")
	m := &Metadata{
		path: path,
		data: fileShape{
			Version:      CurrentVersion,
			CreatedAt:    time.Now().UTC(),
			LastUpdated:  time.Now().UTC(),
			DatabaseType: "hybridrag",
		},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("dbmeta: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m.data); err != nil {
		return nil, fmt.Errorf("dbmeta: parse %s: %w", path, err)
	}
	return m, nil
}

// Exists reports whether the metadata file is present on disk.
func (m *Metadata) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

func (m *Metadata) save() error {
	m.data.LastUpdated = time.Now().UTC()
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("dbmeta: create dir: %w", err)
	}
	out, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("dbmeta: marshal: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("dbmeta: write temp: %w", err)
	}
	return os.Rename(tmp, m.path)
}

// AddSourceFolder records folder as tracked, updating last_ingested if it
// is already present.
func (m *Metadata) AddSourceFolder(folder string, recursive bool) error {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("dbmeta: resolve source folder: %w", err)
	}
	now := time.Now().UTC()
	for i := range m.data.SourceFolders {
		if m.data.SourceFolders[i].Path == abs {
			m.data.SourceFolders[i].LastIngested = now
			m.data.SourceFolders[i].Recursive = recursive
			return m.save()
		}
	}
	m.data.SourceFolders = append(m.data.SourceFolders, SourceFolder{
		Path:         abs,
		AddedAt:      now,
		LastIngested: now,
		Recursive:    recursive,
	})
	return m.save()
}

// RecordIngestion appends one history entry and, on success, accumulates
// total_files_ingested.
func (m *Metadata) RecordIngestion(folder string, mode Mode, filesProcessed, errs int, success bool, notes string) (HistoryEntry, error) {
	abs := folder
	if folder != "" {
		if a, err := filepath.Abs(folder); err == nil {
			abs = a
		}
	}
	entry := HistoryEntry{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		SourceFolder:   abs,
		Mode:           mode,
		FilesProcessed: filesProcessed,
		Errors:         errs,
		Success:        success,
		Notes:          notes,
	}
	m.data.IngestionHistory = append(m.data.IngestionHistory, entry)
	if success {
		m.data.TotalFilesIngested += filesProcessed
	}
	return entry, m.save()
}

// SourceFolders returns the tracked source folders.
func (m *Metadata) SourceFolders() []SourceFolder {
	return append([]SourceFolder(nil), m.data.SourceFolders...)
}

// History returns the most recent limit entries (all of them if limit<=0).
func (m *Metadata) History(limit int) []HistoryEntry {
	h := m.data.IngestionHistory
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return append([]HistoryEntry(nil), h...)
}

// SetDescription updates and persists the database's description.
func (m *Metadata) SetDescription(description string) error {
	m.data.Description = description
	return m.save()
}

// GetStats returns the db-info summary view.
func (m *Metadata) GetStats() Stats {
	return Stats{
		CreatedAt:          m.data.CreatedAt,
		LastUpdated:        m.data.LastUpdated,
		TotalFilesIngested: m.data.TotalFilesIngested,
		SourceFoldersCount: len(m.data.SourceFolders),
		IngestionEvents:    len(m.data.IngestionHistory),
		Description:        m.data.Description,
	}
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package registry implements the authoritative catalog of databases (C1):
// name, storage path, source folder, watch interval, model, backend
// selection, and type-specific config, persisted to a single
// human-editable YAML file.
package registry

import (
	"os"
	"strings"
	"time"
)

// SourceType determines default filters and preprocessing for a database.
type SourceType string

const (
	SourceFilesystem SourceType = "filesystem"
	SourceSpecstory  SourceType = "specstory"
	SourceAPI        SourceType = "api"
	SourceSchema     SourceType = "schema"
)

// BackendKind selects the storage backend for a database.
type BackendKind string

const (
	BackendJSON     BackendKind = "json"
	BackendPostgres BackendKind = "postgres"
)

// PostgresConfig configures a PostgreSQL+pgvector backend.
//
// Password never reaches disk: Registry.save redacts it before marshaling,
// so the on-disk catalog never holds a plaintext credential. It survives in
// the in-memory record for the lifetime of the process that registered it
// (immediate reconnection without a round trip through the env), but a
// freshly loaded Registry sees an empty Password and must resolve one via
// ResolvePassword at connect time. The json:"-" tag additionally hides it
// from --json CLI output.
type PostgresConfig struct {
	Host           string         `yaml:"host" json:"host"`
	Port           int            `yaml:"port" json:"port"`
	User           string         `yaml:"user" json:"user"`
	Password       string         `yaml:"password,omitempty" json:"-"`
	Database       string         `yaml:"database" json:"database"`
	Workspace      string         `yaml:"workspace" json:"workspace"`
	SSLMode        string         `yaml:"ssl_mode" json:"ssl_mode"`
	MaxConnections int            `yaml:"max_connections" json:"max_connections"`
	VectorIndex    string         `yaml:"vector_index" json:"vector_index"`
	IndexParams    map[string]any `yaml:"index_params,omitempty" json:"index_params,omitempty"`
}

// pgPasswordEnvVar returns the per-database environment variable a
// postgres backend's password is resolved from:
// HYBRIDRAG_PG_PASSWORD_<DB NAME, uppercased, each non-alnum character
// replaced by an underscore>. Database names are already constrained to
// [a-z0-9-]+ (ValidName), so this only ever needs to handle the hyphen.
func pgPasswordEnvVar(dbName string) string {
	upper := strings.ToUpper(dbName)
	upper = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, upper)
	return "HYBRIDRAG_PG_PASSWORD_" + upper
}

// ResolvePassword returns the password to connect to dbName's postgres
// backend with: the per-database environment variable takes precedence
// over whatever Password holds, since a loaded-from-disk record's Password
// is always empty (Registry.save never persists it) and the env var is
// the only way a reconnecting process recovers the credential. Password
// itself is only ever nonempty within the process that just registered
// the database.
func (c *PostgresConfig) ResolvePassword(dbName string) string {
	if v := os.Getenv(pgPasswordEnvVar(dbName)); v != "" {
		return v
	}
	return c.Password
}

// Backend is the tagged-variant backend selection for a database.
type Backend struct {
	Kind     BackendKind     `yaml:"kind" json:"kind"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// Thresholds are the per-database storage-size and performance-degradation
// limits consumed by C4/C5 (§4.4.6, §4.4.7, §4.5.3).
type Thresholds struct {
	FileWarnMB         int     `yaml:"file_warn_mb" json:"file_warn_mb"`
	TotalWarnMB        int     `yaml:"total_warn_mb" json:"total_warn_mb"`
	PerfDegradationPct float64 `yaml:"perf_degradation_pct" json:"perf_degradation_pct"`
}

// DefaultThresholds matches the defaults named in §4.4.7: 500 MiB per file,
// 2 GiB total, 50% degradation before a performance warning.
func DefaultThresholds() Thresholds {
	return Thresholds{FileWarnMB: 500, TotalWarnMB: 2048, PerfDegradationPct: 50}
}

// DatabaseRecord is the persisted description of one database (§3).
type DatabaseRecord struct {
	Name             string         `yaml:"name" json:"name"`
	Path             string         `yaml:"path" json:"path"`
	SourceFolder     string         `yaml:"source_folder,omitempty" json:"source_folder,omitempty"`
	SourceType       SourceType     `yaml:"source_type" json:"source_type"`
	AutoWatch        bool           `yaml:"auto_watch" json:"auto_watch"`
	WatchIntervalSec int            `yaml:"watch_interval_sec" json:"watch_interval_sec"`
	Recursive        bool           `yaml:"recursive" json:"recursive"`
	FileExtensions   []string       `yaml:"file_extensions,omitempty" json:"file_extensions,omitempty"`
	Model            string         `yaml:"model,omitempty" json:"model,omitempty"`
	Backend          Backend        `yaml:"backend" json:"backend"`
	Thresholds       Thresholds     `yaml:"thresholds" json:"thresholds"`
	CreatedAt        time.Time      `yaml:"created_at" json:"created_at"`
	LastSyncAt       *time.Time     `yaml:"last_sync_at,omitempty" json:"last_sync_at,omitempty"`
	Description      string         `yaml:"description,omitempty" json:"description,omitempty"`
	SpecstoryConfig  map[string]any `yaml:"specstory_config,omitempty" json:"specstory_config,omitempty"`
	APIConfig        map[string]any `yaml:"api_config,omitempty" json:"api_config,omitempty"`
	SchemaConfig     map[string]any `yaml:"schema_config,omitempty" json:"schema_config,omitempty"`
}

// Clone returns a deep-enough copy for safe handoff across goroutines
// (the registry never hands out its internal pointers directly).
func (r *DatabaseRecord) Clone() *DatabaseRecord {
	c := *r
	if r.FileExtensions != nil {
		c.FileExtensions = append([]string(nil), r.FileExtensions...)
	}
	if r.Backend.Postgres != nil {
		pg := *r.Backend.Postgres
		c.Backend.Postgres = &pg
	}
	if r.LastSyncAt != nil {
		t := *r.LastSyncAt
		c.LastSyncAt = &t
	}
	return &c
}

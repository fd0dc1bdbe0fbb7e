// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the schema version written to new registry files.
const CurrentVersion = 1

var nameRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidName reports whether s is a legal database name (§3).
func ValidName(s string) bool {
	return nameRE.MatchString(s)
}

// ErrAlreadyExists is returned by Register/Update when the target name is
// already taken.
type ErrAlreadyExists struct{ Name string }

func (e *ErrAlreadyExists) Error() string {
	return fmt.Sprintf("database %q already exists", e.Name)
}

// ErrInvalidName is returned by Register/Update when a name fails the name
// regex in §3.
type ErrInvalidName struct{ Name string }

func (e *ErrInvalidName) Error() string {
	return fmt.Sprintf("invalid database name %q: must match ^[a-z0-9]([a-z0-9-]*[a-z0-9])?$", e.Name)
}

// ErrNotFound is returned when a named database does not exist.
type ErrNotFound struct{ Name string }

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("database %q not found", e.Name)
}

type registryFile struct {
	Version   int                        `yaml:"version"`
	Databases map[string]*DatabaseRecord `yaml:"databases"`
}

// Registry is the in-memory, file-backed catalog of databases (C1). It is
// safe for concurrent use within one process; cross-process mutation is
// serialized only by the atomic-rename write (§5's documented limitation).
type Registry struct {
	mu   sync.Mutex
	path string
	data registryFile
}

// Open loads the registry at path, creating an empty one if it does not
// yet exist.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, data: registryFile{Version: CurrentVersion, Databases: map[string]*DatabaseRecord{}}}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if len(raw) == 0 {
		return r, nil
	}

	var f registryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if f.Databases == nil {
		f.Databases = map[string]*DatabaseRecord{}
	}
	if f.Version == 0 {
		f.Version = CurrentVersion
	}
	r.data = f
	return r, nil
}

// save performs an atomic write (write temp + rename), per §3's invariant
// and the crash-safety requirement restated in §4.1/§6.2. The caller must
// hold r.mu.
func (r *Registry) save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	out, err := yaml.Marshal(redactedForSave(r.data))
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename registry: %w", err)
	}
	return nil
}

// redactedForSave returns a copy of f with every postgres backend's
// Password cleared, so a postgres credential never reaches the on-disk
// catalog (PostgresConfig.ResolvePassword recovers it at connect time
// instead). The in-memory registryFile r.data is left untouched.
func redactedForSave(f registryFile) registryFile {
	out := registryFile{Version: f.Version, Databases: make(map[string]*DatabaseRecord, len(f.Databases))}
	for name, rec := range f.Databases {
		clone := rec.Clone()
		if clone.Backend.Postgres != nil {
			clone.Backend.Postgres.Password = ""
		}
		out.Databases[name] = clone
	}
	return out
}

// Register adds a new database record. Fails with ErrAlreadyExists if the
// name is taken, ErrInvalidName on regex mismatch. Paths are normalized to
// absolute; created_at is assigned.
func (r *Registry) Register(rec DatabaseRecord) (*DatabaseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !ValidName(rec.Name) {
		return nil, &ErrInvalidName{Name: rec.Name}
	}
	if _, exists := r.data.Databases[rec.Name]; exists {
		return nil, &ErrAlreadyExists{Name: rec.Name}
	}

	if err := normalizePaths(&rec); err != nil {
		return nil, err
	}
	if rec.Thresholds == (Thresholds{}) {
		rec.Thresholds = DefaultThresholds()
	}
	if rec.WatchIntervalSec <= 0 {
		rec.WatchIntervalSec = 30
	}
	if rec.SourceType == "" {
		rec.SourceType = SourceFilesystem
	}
	if rec.Backend.Kind == "" {
		rec.Backend.Kind = BackendJSON
	}
	rec.CreatedAt = time.Now().UTC()

	stored := rec.Clone()
	r.data.Databases[rec.Name] = stored

	if err := r.save(); err != nil {
		delete(r.data.Databases, rec.Name)
		return nil, err
	}
	return stored.Clone(), nil
}

// Unregister removes a database's registry entry. It never touches the
// database's path contents.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data.Databases[name]; !ok {
		return &ErrNotFound{Name: name}
	}
	removed := r.data.Databases[name]
	delete(r.data.Databases, name)
	if err := r.save(); err != nil {
		r.data.Databases[name] = removed
		return err
	}
	return nil
}

// UpdateFields carries the optional fields Update may change. A nil field
// leaves the existing value untouched.
type UpdateFields struct {
	NewName          *string
	SourceFolder     *string
	AutoWatch        *bool
	WatchIntervalSec *int
	Recursive        *bool
	FileExtensions   *[]string
	Model            *string
	Description      *string
	Thresholds       *Thresholds
}

// Update mutates a database record, supporting rename. Fails if a rename
// target name already exists.
func (r *Registry) Update(name string, fields UpdateFields) (*DatabaseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.data.Databases[name]
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}

	updated := rec.Clone()
	newName := name
	if fields.NewName != nil && *fields.NewName != name {
		if !ValidName(*fields.NewName) {
			return nil, &ErrInvalidName{Name: *fields.NewName}
		}
		if _, exists := r.data.Databases[*fields.NewName]; exists {
			return nil, &ErrAlreadyExists{Name: *fields.NewName}
		}
		newName = *fields.NewName
		updated.Name = newName
	}
	if fields.SourceFolder != nil {
		updated.SourceFolder = *fields.SourceFolder
	}
	if fields.AutoWatch != nil {
		updated.AutoWatch = *fields.AutoWatch
	}
	if fields.WatchIntervalSec != nil {
		updated.WatchIntervalSec = *fields.WatchIntervalSec
	}
	if fields.Recursive != nil {
		updated.Recursive = *fields.Recursive
	}
	if fields.FileExtensions != nil {
		updated.FileExtensions = *fields.FileExtensions
	}
	if fields.Model != nil {
		updated.Model = *fields.Model
	}
	if fields.Description != nil {
		updated.Description = *fields.Description
	}
	if fields.Thresholds != nil {
		updated.Thresholds = *fields.Thresholds
	}

	if err := normalizePaths(updated); err != nil {
		return nil, err
	}

	oldEntry := r.data.Databases[name]
	delete(r.data.Databases, name)
	r.data.Databases[newName] = updated

	if err := r.save(); err != nil {
		delete(r.data.Databases, newName)
		r.data.Databases[name] = oldEntry
		return nil, err
	}
	return updated.Clone(), nil
}

// Get returns a copy of the named record, or nil if it doesn't exist.
func (r *Registry) Get(name string) *DatabaseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data.Databases[name]
	if !ok {
		return nil
	}
	return rec.Clone()
}

// List returns all records sorted by name.
func (r *Registry) List() []*DatabaseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*DatabaseRecord, 0, len(r.data.Databases))
	for _, rec := range r.data.Databases {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted list of registered database names, used for
// "did you mean" suggestions when a CLI lookup misses.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.data.Databases))
	for n := range r.data.Databases {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data.Databases[name]
	return ok
}

// UpdateLastSync sets last_sync_at = now for name.
func (r *Registry) UpdateLastSync(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.data.Databases[name]
	if !ok {
		return &ErrNotFound{Name: name}
	}
	now := time.Now().UTC()
	rec.LastSyncAt = &now
	return r.save()
}

// Resolve implements §4.1's name-or-path resolution: if input has no path
// separators it is looked up as a registered name; otherwise it is treated
// as a raw path with no backing record.
func (r *Registry) Resolve(nameOrPath string) (absPath string, rec *DatabaseRecord, err error) {
	if !filepath.IsAbs(nameOrPath) && filepath.Base(nameOrPath) == nameOrPath {
		rec = r.Get(nameOrPath)
		if rec == nil {
			return "", nil, &ErrNotFound{Name: nameOrPath}
		}
		return rec.Path, rec, nil
	}
	abs, err := filepath.Abs(nameOrPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolve path %q: %w", nameOrPath, err)
	}
	return abs, nil, nil
}

func normalizePaths(rec *DatabaseRecord) error {
	if rec.Path != "" {
		abs, err := filepath.Abs(rec.Path)
		if err != nil {
			return fmt.Errorf("normalize path: %w", err)
		}
		rec.Path = abs
	}
	if rec.SourceFolder != "" {
		abs, err := filepath.Abs(rec.SourceFolder)
		if err != nil {
			return fmt.Errorf("normalize source_folder: %w", err)
		}
		rec.SourceFolder = abs
	}
	return nil
}

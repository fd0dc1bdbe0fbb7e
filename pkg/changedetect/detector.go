// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package changedetect

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Changes is the result of one DetectChanges call. No ordering between the
// three sets is guaranteed (§4.3).
type Changes struct {
	New      []string
	Modified []string
	Deleted  []string
}

// Detector scans root under Filters and tracks known files between calls.
// Memory is bounded by the current scan's file count: last_mtime entries
// for deleted files are erased on every tick.
type Detector struct {
	root    string
	filters Filters

	mu        sync.Mutex
	known     map[string]struct{}
	lastMTime map[string]time.Time
}

// New returns a Detector for root. The first DetectChanges call establishes
// the baseline: every file present is reported as new.
func New(root string, filters Filters) *Detector {
	return &Detector{
		root:      root,
		filters:   filters,
		known:     map[string]struct{}{},
		lastMTime: map[string]time.Time{},
	}
}

// Baseline populates known state without returning any changes, used by
// watch mode (§4.4.4) to avoid re-ingesting everything batch mode already
// processed.
func (d *Detector) Baseline() error {
	_, err := d.scanAndDiff(false)
	return err
}

// DetectChanges walks root and returns (new, modified, deleted) relative
// to the previous call.
func (d *Detector) DetectChanges() (Changes, error) {
	return d.scanAndDiff(true)
}

func (d *Detector) scanAndDiff(report bool) (Changes, error) {
	current := map[string]time.Time{}

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// A single unreadable entry should not abort the whole scan.
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path != d.root && !d.filters.Recursive {
				return fs.SkipDir
			}
			if isHiddenName(entry.Name()) && path != d.root && !d.filters.SpecstoryOnly {
				return fs.SkipDir
			}
			return nil
		}
		if !d.matches(path, entry.Name()) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		current[path] = info.ModTime()
		return nil
	})
	if err != nil {
		return Changes{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var changes Changes
	for path, mtime := range current {
		if _, known := d.known[path]; !known {
			if report {
				changes.New = append(changes.New, path)
			}
		} else if mtime.After(d.lastMTime[path]) {
			if report {
				changes.Modified = append(changes.Modified, path)
			}
		}
	}
	for path := range d.known {
		if _, stillPresent := current[path]; !stillPresent {
			if report {
				changes.Deleted = append(changes.Deleted, path)
			}
			delete(d.lastMTime, path)
		}
	}

	d.known = make(map[string]struct{}, len(current))
	for path, mtime := range current {
		d.known[path] = struct{}{}
		d.lastMTime[path] = mtime
	}

	return changes, nil
}

func (d *Detector) matches(path, name string) bool {
	if isHiddenName(name) {
		return false
	}
	if d.filters.SpecstoryOnly && !hasPathSegment(path, ".specstory") {
		return false
	}
	if len(d.filters.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(name))
		found := false
		for _, want := range d.filters.Extensions {
			if strings.ToLower(want) == ext {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

func hasPathSegment(path, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == segment {
			return true
		}
	}
	return false
}

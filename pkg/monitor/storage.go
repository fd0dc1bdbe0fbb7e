// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package monitor

import (
	"fmt"
	"os"
	"path/filepath"
)

// StorageWarning describes one storage-size finding from CheckStorageSize
// (§4.4.7): either a single oversized file or the database's total size.
type StorageWarning struct {
	Severity AlertSeverity
	Message  string
	Path     string // empty for a total-size warning
	SizeMB   float64
}

// CheckStorageSize walks dir (a JSON-backed database's storage directory)
// and returns a warning per file at or above fileWarnMB, plus at most one
// warning for the aggregate size at or above totalWarnMB (escalated to
// severity error at 1.5x that threshold). The watch loop runs it every
// ingest.Config.StorageCheckEvery cycles; these are operator signals and
// never halt ingestion.
func CheckStorageSize(dir string, fileWarnMB, totalWarnMB int) ([]StorageWarning, error) {
	var warnings []StorageWarning
	var totalBytes int64

	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if filepath.Ext(entry.Name()) != ".json" {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		totalBytes += info.Size()

		sizeMB := float64(info.Size()) / (1024 * 1024)
		if fileWarnMB > 0 && sizeMB >= float64(fileWarnMB) {
			warnings = append(warnings, StorageWarning{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("file %s is %.1f MiB (warn threshold %d MiB)", path, sizeMB, fileWarnMB),
				Path:     path,
				SizeMB:   sizeMB,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("monitor: walk storage dir: %w", err)
	}

	totalMB := float64(totalBytes) / (1024 * 1024)
	if totalWarnMB > 0 && totalMB >= float64(totalWarnMB) {
		sev := SeverityWarning
		if totalMB >= float64(totalWarnMB)*1.5 {
			sev = SeverityError
		}
		warnings = append(warnings, StorageWarning{
			Severity: sev,
			Message:  fmt.Sprintf("total JSON storage is %.1f MiB (warn threshold %d MiB)", totalMB, totalWarnMB),
			SizeMB:   totalMB,
		})
	}

	return warnings, nil
}

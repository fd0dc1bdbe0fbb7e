// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package registry

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	envStateRoot = "HYBRIDRAG_HOME"
	envConfig    = "HYBRIDRAG_CONFIG"
)

// DefaultStateRoot returns ~/.hybridrag, the default per-user state root
// named in §6.2, unless overridden by HYBRIDRAG_HOME.
func DefaultStateRoot() (string, error) {
	if v := os.Getenv(envStateRoot); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".hybridrag"), nil
}

// ResolvePath implements the registry location resolution order from
// §4.1: (1) HYBRIDRAG_CONFIG env var, (2) the config_pointer file's
// contents under the state root, (3) registry.yaml under the state root.
func ResolvePath(stateRoot string) (string, error) {
	if v := os.Getenv(envConfig); v != "" {
		return v, nil
	}

	pointerPath := filepath.Join(stateRoot, "config_pointer")
	if raw, err := os.ReadFile(pointerPath); err == nil {
		p := strings.TrimSpace(string(raw))
		if p != "" {
			return p, nil
		}
	}

	return filepath.Join(stateRoot, "registry.yaml"), nil
}

// StatePaths collects the on-disk layout under the state root (§6.2).
type StatePaths struct {
	Root             string
	RegistryPath     string
	PIDsDir          string
	BatchDir         string
	EnrichPendingDir string
	EnrichDoneDir    string
	AlertsPath       string
	WatcherCtrlDir   string
	LogPath          string
}

// NewStatePaths resolves every path named in §6.2 relative to stateRoot.
func NewStatePaths(stateRoot string) (*StatePaths, error) {
	registryPath, err := ResolvePath(stateRoot)
	if err != nil {
		return nil, err
	}
	return &StatePaths{
		Root:             stateRoot,
		RegistryPath:     registryPath,
		PIDsDir:          filepath.Join(stateRoot, "pids"),
		BatchDir:         filepath.Join(stateRoot, "batch"),
		EnrichPendingDir: filepath.Join(stateRoot, "enrichment_pending"),
		EnrichDoneDir:    filepath.Join(stateRoot, "enrichment_done"),
		AlertsPath:       filepath.Join(stateRoot, "alerts.json"),
		WatcherCtrlDir:   filepath.Join(stateRoot, "watcher_control"),
		LogPath:          filepath.Join(stateRoot, "hybridrag.log"),
	}, nil
}

// PendingPath returns <state>/batch/<db>.pending.txt (§4.4.2).
func (s *StatePaths) PendingPath(db string) string {
	return filepath.Join(s.BatchDir, db+".pending.txt")
}

// EnrichPendingPath returns <state>/enrichment_pending/<db>.txt.
func (s *StatePaths) EnrichPendingPath(db string) string {
	return filepath.Join(s.EnrichPendingDir, db+".txt")
}

// EnrichDonePath returns <state>/enrichment_done/<db>.txt.
func (s *StatePaths) EnrichDonePath(db string) string {
	return filepath.Join(s.EnrichDoneDir, db+".txt")
}

// PIDPath returns <state>/pids/<db>.pid.
func (s *StatePaths) PIDPath(db string) string {
	return filepath.Join(s.PIDsDir, db+".pid")
}

// PausePath, PauseAckPath and ControlPIDPath implement the watcher
// pause/resume IPC described in SPEC_FULL.md section C.
func (s *StatePaths) PausePath(db string) string    { return filepath.Join(s.WatcherCtrlDir, db+".pause") }
func (s *StatePaths) PauseAckPath(db string) string {
	return filepath.Join(s.WatcherCtrlDir, db+".pause_ack")
}
func (s *StatePaths) ControlPIDPath(db string) string {
	return filepath.Join(s.WatcherCtrlDir, db+".pid")
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command hybridrag-dashboard is a minimal terminal dashboard that polls
// the control plane's registry, lock, and alert state the same way the
// database_status and health_check tools do, and renders it full-screen.
// It is a reference client at the dashboard integration seam, not part
// of the core: a real operator dashboard can poll the same files (or
// the --mcp query server) from any language.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

func main() {
	stateDir := flag.String("state-dir", "", "Override the default ~/.hybridrag state root")
	interval := flag.Duration("interval", 2*time.Second, "Poll interval")
	flag.Parse()

	stateRoot := *stateDir
	if stateRoot == "" {
		root, err := registry.DefaultStateRoot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "hybridrag-dashboard: resolve state directory: %v\n", err)
			os.Exit(1)
		}
		stateRoot = root
	}

	paths, err := registry.NewStatePaths(stateRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridrag-dashboard: build state paths: %v\n", err)
		os.Exit(1)
	}

	reg, err := registry.Open(paths.RegistryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridrag-dashboard: open registry: %v\n", err)
		os.Exit(1)
	}

	alerts, err := monitor.OpenAlertStore(paths.AlertsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridrag-dashboard: open alert store: %v\n", err)
		os.Exit(1)
	}

	m := newModel(reg, paths, alerts, *interval)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "hybridrag-dashboard: %v\n", err)
		os.Exit(1)
	}
}

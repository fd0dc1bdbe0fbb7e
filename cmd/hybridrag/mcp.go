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

	"github.com/kraklabs/hybridrag/internal/errors"
	"github.com/kraklabs/hybridrag/internal/logging"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
	"github.com/kraklabs/hybridrag/pkg/tools"
)

// runMCP implements `hybridrag --mcp`: serves the §6.4 query tool surface
// over stdio until the process receives SIGTERM/SIGINT or stdin closes.
//
// This builds its own env rather than reusing newEnv/main's dispatch
// path because a long-running query server should log to its own
// dedicated log file instead of the terse per-invocation CLI logger, and
// because a bad registry/alerts file should report over stderr (stdio is
// reserved for the MCP transport) rather than through the CLI's
// JSON/text error renderer.
func runMCP(globals GlobalFlags) {
	stateRoot := globals.StateDir
	if stateRoot == "" {
		root, err := registry.DefaultStateRoot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "hybridrag --mcp: resolve state directory: %v\n", err)
			os.Exit(errors.ExitConfig)
		}
		stateRoot = root
	}

	paths, err := registry.NewStatePaths(stateRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridrag --mcp: build state paths: %v\n", err)
		os.Exit(errors.ExitConfig)
	}

	logger := logging.New(logging.Config{JSON: true, Level: slog.LevelInfo, LogFile: paths.LogPath})

	reg, err := registry.Open(paths.RegistryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridrag --mcp: open registry: %v\n", err)
		os.Exit(errors.ExitConfig)
	}

	alertStore, err := monitor.OpenAlertStore(paths.AlertsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridrag --mcp: open alert store: %v\n", err)
		os.Exit(errors.ExitConfig)
	}

	server := tools.NewServer(tools.Deps{
		Registry: reg,
		Paths:    paths,
		Alerts:   alertStore,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mcp query server starting", "name", tools.ServerName, "version", tools.ServerVersion)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "hybridrag --mcp: %v\n", err)
		os.Exit(errors.ExitRuntime)
	}
}

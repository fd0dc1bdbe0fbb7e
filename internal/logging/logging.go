// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package logging builds the structured loggers used across the hybridrag
// control plane.
//
// All components log through log/slog. Interactive CLI invocations get a
// text handler on stderr (JSON with --json); daemons (watch start, the
// --mcp query server) get a JSON handler writing to both stderr and a rotating log file, per the
// rotation defaults named in the error-handling design (size-rotated,
// default 200 MiB x 5 backups, entries older than 7 days pruned on
// startup).
package logging

import (
	"log/slog"
	"os"
)

// Config controls logger construction.
type Config struct {
	// JSON selects the JSON handler. Daemons always set this to true.
	JSON bool

	// Level is the minimum level to log.
	Level slog.Level

	// LogFile, if non-empty, additionally tees output to a rotating file
	// sink constructed by NewRotatingWriter.
	LogFile string
}

// New builds the root logger for a CLI invocation or daemon process.
func New(cfg Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var w = os.Stderr
	if cfg.LogFile == "" {
		if cfg.JSON {
			handler = slog.NewJSONHandler(w, opts)
		} else {
			handler = slog.NewTextHandler(w, opts)
		}
		return slog.New(handler)
	}

	rot, err := NewRotatingWriter(cfg.LogFile, DefaultMaxSizeBytes, DefaultMaxBackups)
	if err != nil {
		// Fall back to stderr only; the caller can still operate without
		// a file sink, just without durable logs across restarts.
		handler = slog.NewJSONHandler(w, opts)
		return slog.New(handler).With("log_file_error", err.Error())
	}

	mw := multiWriter{w, rot}
	handler = slog.NewJSONHandler(mw, opts)
	return slog.New(handler)
}

// WithDatabase returns a child logger scoped to a single database.
func WithDatabase(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("database", name)
}

// WithComponent returns a child logger scoped to one of C1-C5.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

type multiWriter []interface {
	Write([]byte) (int, error)
}

func (m multiWriter) Write(p []byte) (int, error) {
	for _, w := range m {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

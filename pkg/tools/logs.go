// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// GetLogsArgs parameterizes the get_logs tool (§6.4).
type GetLogsArgs struct {
	// Lines caps how many matching entries are returned, most recent
	// last. Zero or negative defaults to 100.
	Lines int `json:"lines,omitempty"`
	// Level, if set, keeps only entries at this slog level or more
	// severe (debug < info < warn < error), matching the JSON handler's
	// "level" field internal/logging.New writes for every daemon.
	Level string `json:"level,omitempty"`
}

const defaultLogLines = 100

// tailChunkBytes bounds how much of the log file get_logs reads from the
// end before filtering, keeping the tool "fast" per §6.4 even against a
// log file close to internal/logging's rotation ceiling.
const tailChunkBytes = 1 << 20

// logLine is the subset of internal/logging's JSON handler output this
// tool cares about; unrecognized fields are preserved verbatim in Text.
type logLine struct {
	Level string `json:"level"`
	Time  string `json:"time"`
	Msg   string `json:"msg"`
}

// GetLogs implements the get_logs tool: tails the daemon's log file
// (registry.StatePaths.LogPath), optionally filtered to a minimum
// severity level.
func GetLogs(ctx context.Context, deps Deps, args GetLogsArgs) (*ToolResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if deps.Paths == nil || deps.Paths.LogPath == "" {
		return NewError("tools: no log path configured"), nil
	}

	raw, err := tailFile(deps.Paths.LogPath, tailChunkBytes)
	if err != nil {
		if os.IsNotExist(err) {
			return jsonResult(map[string]any{"lines": []string{}, "count": 0})
		}
		return NewError(fmt.Sprintf("tools: read log file: %s", err)), nil
	}

	var minLevel slog.Level
	filterByLevel := args.Level != ""
	if filterByLevel {
		if err := minLevel.UnmarshalText([]byte(args.Level)); err != nil {
			return NewError(fmt.Sprintf("tools: invalid level %q", args.Level)), nil
		}
	}

	limit := args.Lines
	if limit <= 0 {
		limit = defaultLogLines
	}

	candidates := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	matched := make([]string, 0, len(candidates))
	for _, line := range candidates {
		if line == "" {
			continue
		}
		if filterByLevel {
			var ll logLine
			if err := json.Unmarshal([]byte(line), &ll); err != nil {
				continue
			}
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(ll.Level)); err != nil || lvl < minLevel {
				continue
			}
		}
		matched = append(matched, line)
	}

	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return jsonResult(map[string]any{"lines": matched, "count": len(matched)})
}

// tailFile reads at most maxBytes from the end of path.
func tailFile(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	size := info.Size()
	offset := int64(0)
	if size > maxBytes {
		offset = size - maxBytes
	}
	if _, err := f.Seek(offset, 0); err != nil {
		return "", err
	}

	buf, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

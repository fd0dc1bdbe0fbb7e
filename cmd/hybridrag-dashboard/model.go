// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kraklabs/hybridrag/pkg/dbmeta"
	"github.com/kraklabs/hybridrag/pkg/lock"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

// row is one database's poll snapshot, the same fields database_status
// reports over MCP, gathered directly here so the dashboard never pays
// for a tool-call round trip.
type row struct {
	Name               string
	Running            bool
	PID                int
	AutoWatch          bool
	SourceFolder       string
	Backend            string
	TotalFilesIngested int
	LastSyncAt         *time.Time
}

type tickMsg time.Time

type pollMsg struct {
	rows    []row
	summary monitor.Summary
}

// model is the bubbletea model. It holds no mutable poll state beyond
// what the last pollMsg delivered; Update never blocks on IO itself.
type model struct {
	registry *registry.Registry
	paths    *registry.StatePaths
	alerts   *monitor.AlertStore
	interval time.Duration

	width, height int
	rows          []row
	summary       monitor.Summary
	selected      int
	lastPoll      time.Time
}

func newModel(reg *registry.Registry, paths *registry.StatePaths, alerts *monitor.AlertStore, interval time.Duration) model {
	return model{registry: reg, paths: paths, alerts: alerts, interval: interval}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), poll(m.registry, m.paths, m.alerts))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func poll(reg *registry.Registry, paths *registry.StatePaths, alerts *monitor.AlertStore) tea.Cmd {
	return func() tea.Msg {
		recs := reg.List()
		rows := make([]row, 0, len(recs))
		for _, rec := range recs {
			r := row{
				Name:         rec.Name,
				AutoWatch:    rec.AutoWatch,
				SourceFolder: rec.SourceFolder,
				Backend:      string(rec.Backend.Kind),
				LastSyncAt:   rec.LastSyncAt,
			}
			if paths != nil {
				r.Running, r.PID = lock.IsRunning(paths.PIDPath(rec.Name))
			}
			if meta, err := dbmeta.Open(rec.Path); err == nil {
				r.TotalFilesIngested = meta.GetStats().TotalFilesIngested
			}
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

		var summary monitor.Summary
		if alerts != nil {
			summary = alerts.GetSummary()
		}
		return pollMsg{rows: rows, summary: summary}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "j", "down":
			if m.selected < len(m.rows)-1 {
				m.selected++
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
		case "r":
			return m, poll(m.registry, m.paths, m.alerts)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tea.Batch(tick(m.interval), poll(m.registry, m.paths, m.alerts))
	case pollMsg:
		m.rows = msg.rows
		m.summary = msg.summary
		m.lastPoll = time.Now()
		if m.selected >= len(m.rows) {
			m.selected = len(m.rows) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("hybridrag dashboard"))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(m.lastPoll.Format("15:04:05")))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("No databases registered."))
		b.WriteString("\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %-10s %-6s %-10s %10s  %s", "NAME", "STATE", "PID", "BACKEND", "FILES", "SOURCE")))
		b.WriteString("\n")
		for i, r := range m.rows {
			state := dimStyle.Render("stopped")
			if r.Running {
				state = okStyle.Render("running")
			} else if r.AutoWatch {
				state = warnStyle.Render("down")
			}
			pid := ""
			if r.PID != 0 {
				pid = fmt.Sprintf("%d", r.PID)
			}
			line := fmt.Sprintf("%-20s %-10s %-6s %-10s %10d  %s", r.Name, state, pid, r.Backend, r.TotalFilesIngested, r.SourceFolder)
			if i == m.selected {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(renderAlertSummary(m.summary))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("j/k:select  r:refresh  q:quit"))

	return b.String()
}

func renderAlertSummary(s monitor.Summary) string {
	parts := []string{
		fmt.Sprintf("critical:%d", s.Critical),
		fmt.Sprintf("error:%d", s.Error),
		fmt.Sprintf("warning:%d", s.Warning),
		fmt.Sprintf("info:%d", s.Info),
	}
	style := okStyle
	switch {
	case s.Critical > 0:
		style = critStyle
	case s.Error > 0 || s.Warning > 0:
		style = warnStyle
	}
	return headerStyle.Render("Alerts ") + style.Render(strings.Join(parts, "  ")) + dimStyle.Render(fmt.Sprintf("  (total %d)", s.Total))
}

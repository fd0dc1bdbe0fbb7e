// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/hybridrag/pkg/monitor"
)

func TestRenderAlertSummary_ColorsBySeverity(t *testing.T) {
	ok := renderAlertSummary(monitor.Summary{Total: 0})
	assert.Contains(t, ok, "total 0")

	warn := renderAlertSummary(monitor.Summary{Warning: 2, Total: 2})
	assert.Contains(t, warn, "warning:2")

	crit := renderAlertSummary(monitor.Summary{Critical: 1, Total: 1})
	assert.Contains(t, crit, "critical:1")
}

func TestModelUpdate_PollClampsSelection(t *testing.T) {
	m := newModel(nil, nil, nil, time.Second)
	m.selected = 5

	updated, cmd := m.Update(pollMsg{rows: []row{
		{Name: "zeta"},
		{Name: "alpha"},
	}})
	mm := updated.(model)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, mm.selected) // clamped to len(rows)-1

	updated, _ = mm.Update(tea.KeyMsg{Type: tea.KeyUp})
	mm = updated.(model)
	assert.Equal(t, 0, mm.selected)
}

func TestModelUpdate_QuitKey(t *testing.T) {
	m := newModel(nil, nil, nil, time.Second)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.NotNil(t, cmd)
}

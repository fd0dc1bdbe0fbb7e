// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfTracker_NoBaselineBeforeFiveSamples(t *testing.T) {
	tr := NewPerfTracker(20, 50)
	for i := 0; i < 4; i++ {
		w := tr.Record(100, 60)
		assert.Nil(t, w)
	}
}

func TestPerfTracker_E6_DegradationAlertAfterThreeSlowSamples(t *testing.T) {
	tr := NewPerfTracker(20, 50)

	for i := 0; i < 5; i++ {
		w := tr.Record(100, 60)
		require.Nil(t, w)
	}

	var lastWarning *Warning
	for i := 0; i < 3; i++ {
		lastWarning = tr.Record(30, 60)
	}

	require.NotNil(t, lastWarning, "expected a degradation warning after three slow samples")
	assert.GreaterOrEqual(t, lastWarning.DegradationPct, 70.0)
	assert.InDelta(t, 100, lastWarning.Baseline, 0.01)
}

func TestPerfTracker_CooldownSuppressesRepeatWarnings(t *testing.T) {
	tr := NewPerfTracker(20, 10)
	for i := 0; i < 5; i++ {
		tr.Record(100, 60)
	}

	w1 := tr.Record(10, 60)
	require.NotNil(t, w1)

	w2 := tr.Record(10, 60)
	assert.Nil(t, w2, "cooldown should suppress an immediate second warning")
}

func TestPerfTracker_Reset_ClearsBaseline(t *testing.T) {
	tr := NewPerfTracker(20, 50)
	for i := 0; i < 5; i++ {
		tr.Record(100, 60)
	}
	tr.Reset()

	for i := 0; i < 4; i++ {
		w := tr.Record(10, 60)
		assert.Nil(t, w, "baseline should need to be re-established after reset")
	}
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Normal(t *testing.T) {
	thresholds := DefaultLoadThresholds()
	assert.Equal(t, LoadNormal, Classify(50, 50, thresholds))
}

func TestClassify_HighOnCPU(t *testing.T) {
	thresholds := DefaultLoadThresholds()
	assert.Equal(t, LoadHigh, Classify(91, 10, thresholds))
}

func TestClassify_HighOnMemory(t *testing.T) {
	thresholds := DefaultLoadThresholds()
	assert.Equal(t, LoadHigh, Classify(10, 91, thresholds))
}

func TestClassify_CriticalOnEither(t *testing.T) {
	thresholds := DefaultLoadThresholds()
	assert.Equal(t, LoadCritical, Classify(96, 10, thresholds))
	assert.Equal(t, LoadCritical, Classify(10, 96, thresholds))
}

func TestClassify_CriticalTakesPrecedenceOverHigh(t *testing.T) {
	thresholds := DefaultLoadThresholds()
	assert.Equal(t, LoadCritical, Classify(96, 91, thresholds))
}

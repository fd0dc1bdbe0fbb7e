// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hybridrag/pkg/lock"
	"github.com/kraklabs/hybridrag/pkg/monitor"
	"github.com/kraklabs/hybridrag/pkg/registry"
)

func TestDatabaseStatus_UnknownDatabaseReportsError(t *testing.T) {
	env := newTestEnv(t)
	res, err := DatabaseStatus(context.Background(), env.deps, DatabaseStatusArgs{Database: "missing"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDatabaseStatus_SingleDatabaseReportsRunningAndCounts(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocs("alpha", "beta")

	lk, err := lock.New(env.paths.PIDsDir, env.rec.Name)
	require.NoError(t, err)
	ok, err := lk.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer lk.Release()

	res, err := DatabaseStatus(context.Background(), env.deps, DatabaseStatusArgs{Database: env.rec.Name})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var entry databaseStatusEntry
	require.NoError(t, json.Unmarshal([]byte(res.Text), &entry))
	assert.Equal(t, env.rec.Name, entry.Name)
	assert.True(t, entry.Running)
}

func TestDatabaseStatus_NoDatabaseArgListsAll(t *testing.T) {
	env := newTestEnv(t)
	res, err := DatabaseStatus(context.Background(), env.deps, DatabaseStatusArgs{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body struct {
		Databases []databaseStatusEntry `json:"databases"`
		Count     int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Text), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "docs", body.Databases[0].Name)
}

func TestHealthCheck_AutoWatchDownIsUnhealthy(t *testing.T) {
	env := newTestEnv(t)
	autoWatch := true
	_, err := env.reg.Update(env.rec.Name, registry.UpdateFields{AutoWatch: &autoWatch})
	require.NoError(t, err)

	res, herr := HealthCheck(context.Background(), env.deps, HealthCheckArgs{})
	require.NoError(t, herr)
	require.False(t, res.IsError)

	var body healthCheckResult
	require.NoError(t, json.Unmarshal([]byte(res.Text), &body))
	assert.False(t, body.Healthy, "auto_watch set but not running must be unhealthy")
}

func TestHealthCheck_CriticalAlertIsUnhealthy(t *testing.T) {
	env := newTestEnv(t)
	mgr := monitor.NewAlertManager(env.alerts, nil)
	_, err := mgr.WatcherStopped(env.rec.Name, "test")
	require.NoError(t, err)

	res, err := HealthCheck(context.Background(), env.deps, HealthCheckArgs{})
	require.NoError(t, err)

	var body healthCheckResult
	require.NoError(t, json.Unmarshal([]byte(res.Text), &body))
	assert.False(t, body.Healthy)
	assert.Equal(t, 1, body.Alerts.Critical)
}

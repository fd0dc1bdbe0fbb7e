// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package lock

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquire_SingleWriterExclusion(t *testing.T) {
	dir := t.TempDir()

	l1, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err := l1.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer l1.Release()

	l2, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err = l2.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok, "a second acquire on the same database must fail while the first holds it")

	running, pid := IsRunning(l1.Path())
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestRelease_AllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	l1, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err := l1.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	l1.Release()

	l2, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err = l2.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
	l2.Release()
}

func TestStaleLockRecovery(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "db1")
	require.NoError(t, err)

	// Simulate a crashed process: a PID file pointing at a PID that is
	// very unlikely to be alive, with no flock held.
	f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_RDWR, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("999999 " + time.Now().Format("20060102150405") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	running, _ := IsRunning(l.Path())
	assert.False(t, running)

	ok, err := l.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok, "acquire must succeed and overwrite a stale PID file")
	l.Release()
}

func TestWaitAcquire_TimesOut(t *testing.T) {
	dir := t.TempDir()
	holder, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err := holder.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Release()

	waiter, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err = waiter.WaitAcquire(100*time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWaitAcquire_SucceedsAfterRelease(t *testing.T) {
	dir := t.TempDir()
	holder, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err := holder.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(30 * time.Millisecond)
		holder.Release()
	}()

	waiter, err := New(dir, "db1")
	require.NoError(t, err)
	ok, err = waiter.WaitAcquire(2*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	waiter.Release()
}

func TestReadInfo_MissingFile(t *testing.T) {
	dir := t.TempDir()
	info, err := ReadInfo(dir + "/nonexistent.pid")
	require.NoError(t, err)
	assert.Nil(t, info)
}

// ensures syscall constants referenced compile on the build platform.
func TestFlockConstantsLinux(t *testing.T) {
	assert.NotZero(t, syscall.LOCK_EX)
}

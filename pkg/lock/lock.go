// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package lock implements the per-database exclusive lock and PID manager
// (C2): advisory file locking plus a PID file, stale-lock detection, and
// crash-survival across process restarts.
//
// A database is eligible for exactly one active ingestion process at a
// time — watcher, batch controller, or enrichment worker all reuse the
// same lock (§4.2).
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Info describes the current lock holder, read from the PID file without
// acquiring the lock.
type Info struct {
	PID       int
	StartedAt time.Time
}

// Lock is a held or not-yet-acquired advisory lock for one database.
//
// The file descriptor backing the lock must stay open for the life of the
// owning process: releasing happens on clean shutdown, on signal-initiated
// shutdown, or implicitly when the kernel closes the descriptor on exit.
type Lock struct {
	path string
	f    *os.File
}

// New returns a Lock bound to <pidsDir>/<db>.pid. Nothing is created or
// opened until TryAcquire is called.
func New(pidsDir, db string) (*Lock, error) {
	if err := os.MkdirAll(pidsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create pids dir: %w", err)
	}
	return &Lock{path: filepath.Join(pidsDir, db+".pid")}, nil
}

// TryAcquire attempts to take the exclusive lock without blocking. On
// success it writes the caller's PID and start time into the lock file
// while still holding the advisory lock, so there is no race between
// "check if running" and "write my PID" (§4.2).
//
// Returns (false, nil) if another live process holds the lock.
func (l *Lock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write lock file: %w", err)
	}

	l.f = f
	return true, nil
}

// WaitAcquire polls TryAcquire every interval until it succeeds or timeout
// elapses.
func (l *Lock) WaitAcquire(timeout, interval time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := l.TryAcquire()
		if err != nil || ok {
			return ok, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(interval)
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks, closes, and deletes the lock file. Stale-PID detection
// in IsRunning would keep a left-behind file safe, but removing it on a
// clean release avoids leaving a dead PID around for another process to
// have to detect.
func (l *Lock) Release() {
	if l.f == nil {
		return
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	path := l.path
	l.f = nil
	_ = os.Remove(path)
}

// ReadInfo reads PID and start time from the lock file without acquiring
// the lock. Returns nil, nil if the file does not exist.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pid int
	var ts int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &ts); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	return &Info{PID: pid, StartedAt: time.Unix(ts, 0)}, nil
}

// IsRunning implements §4.2's is_running: checks the PID file and verifies
// the PID is a live process via signal 0. A stale PID file (process gone)
// reports not-running.
func IsRunning(path string) (bool, int) {
	info, err := ReadInfo(path)
	if err != nil || info == nil {
		return false, 0
	}
	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return false, 0
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, 0
	}
	return true, info.PID
}

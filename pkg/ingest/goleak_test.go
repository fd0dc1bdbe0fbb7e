// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ingest

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
		// fsnotify's inotify read loop is torn down on context cancellation
		// via fsw.Close(), but goleak can observe the goroutine before the
		// close has fully unblocked the blocking read.
		goleak.IgnoreTopFunction("golang.org/x/sys/unix.read"),
		goleak.IgnoreTopFunction("syscall.read"),
	)
}

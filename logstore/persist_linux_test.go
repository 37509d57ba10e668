// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package logstore

import (
	"os"
	"slices"
	"testing"

	"golang.org/x/sys/unix"
)

// limitFileSize caps the size of files this process may write until the
// test ends. The Go runtime ignores SIGXFSZ, so an oversized write
// fails with EFBIG after writing what fits.
func limitFileSize(t *testing.T, size uint64) (lift func()) {
	t.Helper()
	var previous unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_FSIZE, &previous); err != nil {
		t.Fatalf("Getrlimit: %v", err)
	}
	if previous.Cur != unix.RLIM_INFINITY && previous.Cur < size {
		t.Skipf("file size already limited to %d bytes", previous.Cur)
	}
	if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: size, Max: previous.Max}); err != nil {
		t.Fatalf("Setrlimit: %v", err)
	}
	lifted := false
	lift = func() {
		if lifted {
			return
		}
		lifted = true
		if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &previous); err != nil {
			t.Fatalf("restoring RLIMIT_FSIZE: %v", err)
		}
	}
	t.Cleanup(lift)
	return lift
}

func TestFlushPartialAppendIsDiscarded(t *testing.T) {
	store := openEmpty(t)
	store.Append(sample(0, 1, 0), sample(1, 1, 1))
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	for position := 2; position < 12; position++ {
		store.Append(sample(uint8(position%Instances), 1, position))
	}

	// Room for one row and part of the next.
	lift := limitFileSize(t, uint64(len(before))+60)
	if err := store.Flush(); err == nil {
		t.Fatal("Flush past the file size limit succeeded")
	}
	lift()

	if store.Written() != 2 {
		t.Errorf("Written() = %d after failed append, want 2", store.Written())
	}
	after, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(after) != string(before) {
		t.Errorf("failed append left the file changed:\n%s\nwant:\n%s", after, before)
	}

	if err := store.Flush(); err != nil {
		t.Fatalf("retry Flush: %v", err)
	}
	if store.Written() != 12 {
		t.Errorf("Written() = %d after retry, want 12", store.Written())
	}

	reloaded, err := Open(store.Path(), testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, want := reloaded.Entries(), store.Entries(); !slices.Equal(got, want) {
		t.Errorf("reloaded %d entries, want %d:\n got %v\nwant %v", len(got), len(want), got, want)
	}
	if reloaded.Written() != 12 {
		t.Errorf("reloaded Written() = %d, want 12", reloaded.Written())
	}
}

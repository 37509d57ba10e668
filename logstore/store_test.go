// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openEmpty opens a Store on a fresh path in a temporary directory.
func openEmpty(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "bmlog.csv"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

// sample builds a measurement entry for instance at page index page.
func sample(instance uint8, page uint16, position int) Entry {
	return Entry{
		Volts:    12.5 + float64(position)/100,
		Amps:     -1.25,
		Temp:     293,
		Instance: instance,
		ID:       EntryID(page, position),
	}
}

func boundary(page uint16, position int) Entry {
	return Entry{Temp: 233, ID: EntryID(page, position), Flags: FlagBoundary}
}

func TestAppendKeepsOrder(t *testing.T) {
	store := openEmpty(t)

	if _, ok := store.Newest(); ok {
		t.Fatal("Newest on empty store returned an entry")
	}

	first := []Entry{sample(0, 1, 0), sample(1, 1, 1)}
	second := []Entry{sample(0, 2, 0)}
	store.Append(first...)
	store.Append(second...)

	want := append(slices.Clone(first), second...)
	if got := store.Entries(); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}
	newest, ok := store.Newest()
	if !ok || newest != second[0] {
		t.Errorf("Newest() = %v, %v; want %v", newest, ok, second[0])
	}
}

func TestEntriesIsACopy(t *testing.T) {
	store := openEmpty(t)
	store.Append(sample(0, 1, 0))

	entries := store.Entries()
	entries[0].Volts = 99

	if newest, _ := store.Newest(); newest.Volts == 99 {
		t.Error("mutating Entries() result changed the store")
	}
}

func TestEntryID(t *testing.T) {
	entry := Entry{ID: EntryID(0x1234, 7)}
	if entry.ID != 0x00071234 {
		t.Errorf("EntryID = %#x, want 0x71234", entry.ID)
	}
	if entry.Page() != 0x1234 || entry.Position() != 7 {
		t.Errorf("Page/Position = %#x/%d", entry.Page(), entry.Position())
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"log/slog"
	"slices"
)

// Store is the in-memory history plus its durability watermark.
type Store struct {
	path    string
	logger  *slog.Logger
	entries []Entry

	// written counts the leading entries known to match the file.
	// Zero means the next Flush rewrites the whole file.
	written int
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append adds entries at the tail in the order given.
func (s *Store) Append(entries ...Entry) {
	s.entries = append(s.entries, entries...)
}

// Len returns the number of entries in the history.
func (s *Store) Len() int {
	return len(s.entries)
}

// Newest returns the most recent entry.
func (s *Store) Newest() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Entries returns a copy of the whole history.
func (s *Store) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Written returns the durability watermark: the number of leading
// entries known to match the file.
func (s *Store) Written() int {
	return s.written
}

// Pending returns the number of entries not yet flushed, or the whole
// history when a full rewrite is due.
func (s *Store) Pending() int {
	return len(s.entries) - s.written
}

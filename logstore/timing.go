// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import "time"

// ReconstructTime assigns timestamps to the untimed tail of the
// history. The newest entry is taken to have been logged at now.
// Walking backward, every entry up to the first boundary or already
// timed entry receives the running clock value.
//
// The device logs one entry per instance per round, so all entries of
// a round share a timestamp. A round ends, and the clock steps back by
// SampleInterval, when the walk meets an instance it has already seen
// in the current round. Entries timed before the first step get
// FlagTrustedTime; the rest are inferred.
//
// Changing an entry that was already written resets the watermark so
// the next Flush rewrites the file. Returns the number of entries
// timed.
func (s *Store) ReconstructTime(now time.Time) int {
	clock := now.Unix()
	trusted := true
	var seen [Instances]bool
	timed := 0

	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := &s.entries[i]
		if entry.IsBoundary() || entry.Time != 0 {
			break
		}
		instance := int(entry.Instance) % Instances
		if seen[instance] {
			clock -= SampleInterval
			trusted = false
			seen = [Instances]bool{}
		}
		seen[instance] = true

		entry.Time = clock
		if trusted {
			entry.Flags |= FlagTrustedTime
		}
		timed++
		if i < s.written {
			s.written = 0
		}
	}

	if timed > 0 {
		s.logger.Debug("reconstructed log times",
			"entries", timed,
			"newest", now.Unix(),
			"oldest", clock,
		)
	}
	return timed
}

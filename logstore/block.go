// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import "slices"

// NewestBlock is the cookie naming the most recent block.
const NewestBlock = -1

// Block is a run of entries between two boundaries. Cookie is the
// index of the block's first entry and can be passed back to Block,
// NextBlock and PreviousBlock.
type Block struct {
	Cookie  int
	Entries []Entry
}

// Block returns the block containing the entry at index cookie, or the
// most recent block for NewestBlock. A cookie naming a boundary entry
// selects the next block after that run of boundaries; a cookie in the
// trailing run of boundaries has no block. Trailing boundaries are
// skipped when resolving NewestBlock, so an empty history or one made
// only of boundaries has no newest block.
func (s *Store) Block(cookie int) (Block, bool) {
	if cookie == NewestBlock {
		cookie = len(s.entries) - 1
		for cookie >= 0 && s.entries[cookie].IsBoundary() {
			cookie--
		}
		if cookie < 0 {
			return Block{}, false
		}
	} else if !s.validCookie(cookie) {
		return Block{}, false
	}

	start := cookie
	if !s.entries[start].IsBoundary() {
		for start > 0 && !s.entries[start-1].IsBoundary() {
			start--
		}
	} else {
		for start < len(s.entries) && s.entries[start].IsBoundary() {
			start++
		}
		if start == len(s.entries) {
			return Block{}, false
		}
	}

	end := start
	for end < len(s.entries) && !s.entries[end].IsBoundary() {
		end++
	}
	return Block{Cookie: start, Entries: slices.Clone(s.entries[start:end])}, true
}

// NextBlock returns the block after the one containing cookie.
func (s *Store) NextBlock(cookie int) (Block, bool) {
	if !s.validCookie(cookie) {
		return Block{}, false
	}
	i := cookie
	for i < len(s.entries) && !s.entries[i].IsBoundary() {
		i++
	}
	for i < len(s.entries) && s.entries[i].IsBoundary() {
		i++
	}
	if i == len(s.entries) {
		return Block{}, false
	}
	return s.Block(i)
}

// PreviousBlock returns the block before the one containing cookie.
func (s *Store) PreviousBlock(cookie int) (Block, bool) {
	if !s.validCookie(cookie) {
		return Block{}, false
	}
	i := cookie
	for i >= 0 && !s.entries[i].IsBoundary() {
		i--
	}
	for i >= 0 && s.entries[i].IsBoundary() {
		i--
	}
	if i < 0 {
		return Block{}, false
	}
	return s.Block(i)
}

func (s *Store) validCookie(cookie int) bool {
	return cookie >= 0 && cookie < len(s.entries)
}

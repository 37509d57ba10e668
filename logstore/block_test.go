// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import "testing"

// historyWithBoundaries returns a store of length entries with
// boundaries at the given indexes.
func historyWithBoundaries(t *testing.T, length int, boundaries ...int) *Store {
	t.Helper()
	store := openEmpty(t)
	isBoundary := make(map[int]bool)
	for _, index := range boundaries {
		isBoundary[index] = true
	}
	for i := range length {
		if isBoundary[i] {
			store.Append(boundary(uint16(i), 0))
		} else {
			store.Append(sample(uint8(i%Instances), uint16(i), 0))
		}
	}
	return store
}

func requireBlock(t *testing.T, block Block, ok bool, first, last int) {
	t.Helper()
	if !ok {
		t.Fatalf("no block, want entries [%d..%d]", first, last)
	}
	if block.Cookie != first {
		t.Errorf("Cookie = %d, want %d", block.Cookie, first)
	}
	if len(block.Entries) != last-first+1 {
		t.Fatalf("got %d entries, want %d", len(block.Entries), last-first+1)
	}
	if got := block.Entries[0].Page(); int(got) != first {
		t.Errorf("first entry page = %d, want %d", got, first)
	}
	if got := block.Entries[len(block.Entries)-1].Page(); int(got) != last {
		t.Errorf("last entry page = %d, want %d", got, last)
	}
}

func TestBlockNavigationRoundTrip(t *testing.T) {
	store := historyWithBoundaries(t, 40, 0, 10, 25)

	block, ok := store.Block(NewestBlock)
	requireBlock(t, block, ok, 26, 39)

	block, ok = store.PreviousBlock(block.Cookie)
	requireBlock(t, block, ok, 11, 24)

	block, ok = store.PreviousBlock(block.Cookie)
	requireBlock(t, block, ok, 1, 9)

	if _, ok := store.PreviousBlock(block.Cookie); ok {
		t.Fatal("PreviousBlock before the first block returned a block")
	}

	block, ok = store.NextBlock(block.Cookie)
	requireBlock(t, block, ok, 11, 24)

	block, ok = store.NextBlock(block.Cookie)
	requireBlock(t, block, ok, 26, 39)

	if _, ok := store.NextBlock(block.Cookie); ok {
		t.Fatal("NextBlock after the last block returned a block")
	}
}

func TestBlockFromInteriorCookie(t *testing.T) {
	store := historyWithBoundaries(t, 40, 0, 10, 25)

	block, ok := store.Block(17)
	requireBlock(t, block, ok, 11, 24)

	// A cookie on a boundary selects the block that follows it.
	block, ok = store.Block(10)
	requireBlock(t, block, ok, 11, 24)
}

func TestBlockWithoutBoundaries(t *testing.T) {
	store := historyWithBoundaries(t, 5)

	block, ok := store.Block(NewestBlock)
	requireBlock(t, block, ok, 0, 4)

	if _, ok := store.PreviousBlock(0); ok {
		t.Error("PreviousBlock returned a block")
	}
	if _, ok := store.NextBlock(0); ok {
		t.Error("NextBlock returned a block")
	}
}

func TestBlockSkipsTrailingAndRepeatedBoundaries(t *testing.T) {
	store := historyWithBoundaries(t, 12, 3, 4, 11)

	block, ok := store.Block(NewestBlock)
	requireBlock(t, block, ok, 5, 10)

	block, ok = store.PreviousBlock(block.Cookie)
	requireBlock(t, block, ok, 0, 2)
}

func TestBlockInvalidCookies(t *testing.T) {
	empty := openEmpty(t)
	if _, ok := empty.Block(NewestBlock); ok {
		t.Error("Block(NewestBlock) on an empty store returned a block")
	}

	store := historyWithBoundaries(t, 5, 2)
	for _, cookie := range []int{-2, 5, 100} {
		if _, ok := store.Block(cookie); ok {
			t.Errorf("Block(%d) returned a block", cookie)
		}
		if _, ok := store.NextBlock(cookie); ok {
			t.Errorf("NextBlock(%d) returned a block", cookie)
		}
		if _, ok := store.PreviousBlock(cookie); ok {
			t.Errorf("PreviousBlock(%d) returned a block", cookie)
		}
	}

	onlyBoundaries := historyWithBoundaries(t, 2, 0, 1)
	if _, ok := onlyBoundaries.Block(NewestBlock); ok {
		t.Error("Block(NewestBlock) on boundaries only returned a block")
	}
}

func TestBlockFromBoundaryCookie(t *testing.T) {
	store := historyWithBoundaries(t, 12, 3, 4, 10, 11)

	// Leading boundary of a repeated run: the block after the run.
	block, ok := store.Block(3)
	requireBlock(t, block, ok, 5, 9)
	block, ok = store.Block(4)
	requireBlock(t, block, ok, 5, 9)

	for _, cookie := range []int{10, 11} {
		if block, ok := store.Block(cookie); ok {
			t.Errorf("Block(%d) on a trailing boundary = %+v, want none", cookie, block)
		}
	}
}

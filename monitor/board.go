// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/bmlog/n2k"
)

// LostListener is told when battery data stops arriving.
type LostListener interface {
	DeviceLost()
}

// BatteryBoard keeps the latest battery reading per instance. Safe for
// concurrent use: the monitor goroutine writes, query handlers read.
type BatteryBoard struct {
	logger   *slog.Logger
	listener LostListener

	mu       sync.Mutex
	readings map[uint8]n2k.BatteryReading
	lost     bool
}

// NewBatteryBoard returns an empty board. listener may be nil.
func NewBatteryBoard(logger *slog.Logger, listener LostListener) *BatteryBoard {
	return &BatteryBoard{
		logger:   logger,
		listener: listener,
		readings: make(map[uint8]n2k.BatteryReading),
	}
}

// BatteryStatus records reading as its instance's latest.
func (b *BatteryBoard) BatteryStatus(reading n2k.BatteryReading) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost {
		b.logger.Info("battery data resumed", "source", reading.Source)
	}
	b.lost = false
	b.readings[reading.Instance] = reading
}

// BatteryLost clears the board and notifies the listener.
func (b *BatteryBoard) BatteryLost() {
	b.mu.Lock()
	b.lost = true
	clear(b.readings)
	b.mu.Unlock()

	if b.listener != nil {
		b.listener.DeviceLost()
	}
}

// Readings returns the latest reading of every instance, ordered by
// instance, and whether data is currently lost.
func (b *BatteryBoard) Readings() ([]n2k.BatteryReading, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	readings := make([]n2k.BatteryReading, 0, len(b.readings))
	for _, reading := range b.readings {
		readings = append(readings, reading)
	}
	slices.SortFunc(readings, func(a, b n2k.BatteryReading) int {
		return int(a.Instance) - int(b.Instance)
	})
	return readings, b.lost
}

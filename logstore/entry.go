// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import "fmt"

// Flags is the entry flag bitset persisted in the flags column.
type Flags uint32

const (
	// FlagBoundary marks the entry the device writes when it boots.
	// It separates blocks and carries no measurement.
	FlagBoundary Flags = 0x01

	// FlagTrustedTime marks a reconstructed timestamp that needed no
	// inferred gap.
	FlagTrustedTime Flags = 0x02
)

const (
	// TempAbsent is the Temp value of an entry without a temperature
	// reading.
	TempAbsent = -1

	// Instances is the number of battery instances the device logs.
	Instances = 4

	// SampleInterval is the device's logging period.
	SampleInterval = 600 // seconds
)

// Entry is one logged sample.
type Entry struct {
	Volts    float64
	Amps     float64
	Temp     int // Kelvin, or TempAbsent
	Instance uint8

	// ID is the device page index in the low 16 bits and the position
	// within that page in the high 16 bits.
	ID uint32

	// Time is the sample's unix time in seconds, 0 when unknown.
	Time int64

	Flags Flags
}

// Page returns the device page index encoded in the ID.
func (e Entry) Page() uint16 {
	return uint16(e.ID & 0xffff)
}

// Position returns the entry's position within its device page.
func (e Entry) Position() uint16 {
	return uint16(e.ID >> 16)
}

// EntryID combines a device page index and an in-page position.
func EntryID(page uint16, position int) uint32 {
	return uint32(page) | uint32(position)<<16
}

// IsBoundary reports whether the entry is a device boot marker.
func (e Entry) IsBoundary() bool {
	return e.Flags&FlagBoundary != 0
}

func (e Entry) String() string {
	return fmt.Sprintf("inst=%d id=%#x volts=%.2f amps=%.3f temp=%d time=%d flags=%#x",
		e.Instance, e.ID, e.Volts, e.Amps, e.Temp, e.Time, uint32(e.Flags))
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import "github.com/bureau-foundation/bmlog/logstore"

// Action names.
const (
	ActionStatus         = "status"
	ActionBlock          = "block"
	ActionNextBlock      = "next-block"
	ActionPreviousBlock  = "previous-block"
	ActionBattery        = "battery"
	ActionResetDeviceLog = "reset-device-log"
)

// NewestBlock is the cookie of the most recent block.
const NewestBlock = logstore.NewestBlock

// StatusResponse describes the sync session and the store.
type StatusResponse struct {
	Version     string `cbor:"version,omitempty"`
	State       string `cbor:"state"`
	Mode        string `cbor:"mode"`
	Command     string `cbor:"command,omitempty"`
	SessionID   uint8  `cbor:"session_id"`
	Index       uint16 `cbor:"index"`
	Device      uint8  `cbor:"device"`
	DeviceKnown bool   `cbor:"device_known"`

	// LastSync is unix seconds, 0 before the first completed sync.
	LastSync int64 `cbor:"last_sync,omitempty"`

	Entries int `cbor:"entries"`
	Written int `cbor:"written"`
	Retries int `cbor:"retries"`

	Frames        uint64 `cbor:"frames,omitempty"`
	FramesHandled uint64 `cbor:"frames_handled,omitempty"`
}

// blockRequest is the request body of the block actions.
type blockRequest struct {
	Cookie int `cbor:"cookie"`
}

// BlockResponse carries one block. Found is false when the requested
// block does not exist.
type BlockResponse struct {
	Found   bool          `cbor:"found"`
	Cookie  int           `cbor:"cookie"`
	Entries []EntryRecord `cbor:"entries,omitempty"`
}

// EntryRecord is the wire form of a logstore.Entry.
type EntryRecord struct {
	Instance uint8   `cbor:"instance"`
	ID       uint32  `cbor:"id"`
	Volts    float64 `cbor:"volts"`
	Amps     float64 `cbor:"amps"`
	Temp     int     `cbor:"temp"`
	Time     int64   `cbor:"time"`
	Flags    uint32  `cbor:"flags"`
}

// Entry converts the record back to a store entry.
func (r EntryRecord) Entry() logstore.Entry {
	return logstore.Entry{
		Volts:    r.Volts,
		Amps:     r.Amps,
		Temp:     r.Temp,
		Instance: r.Instance,
		ID:       r.ID,
		Time:     r.Time,
		Flags:    logstore.Flags(r.Flags),
	}
}

func entryRecord(entry logstore.Entry) EntryRecord {
	return EntryRecord{
		Instance: entry.Instance,
		ID:       entry.ID,
		Volts:    entry.Volts,
		Amps:     entry.Amps,
		Temp:     entry.Temp,
		Time:     entry.Time,
		Flags:    uint32(entry.Flags),
	}
}

// BatteryResponse carries the latest battery readings.
type BatteryResponse struct {
	Lost     bool            `cbor:"lost"`
	Readings []BatteryRecord `cbor:"readings,omitempty"`
}

// BatteryRecord is one instance's latest reading.
type BatteryRecord struct {
	Instance    uint8   `cbor:"instance"`
	Volts       float64 `cbor:"volts"`
	Amps        float64 `cbor:"amps"`
	TempCelsius float64 `cbor:"temp_celsius"`
	TempValid   bool    `cbor:"temp_valid"`
	Source      uint8   `cbor:"source"`
	Received    int64   `cbor:"received"`
}

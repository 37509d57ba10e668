// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package n2k

import "fmt"

const (
	// AddressGlobal is the broadcast destination address.
	AddressGlobal uint8 = 255

	// AddressNull is used by nodes that could not claim an address.
	AddressNull uint8 = 254

	// FastPacketMaxSize is the largest fast-packet payload: 6 bytes in
	// fragment 0 plus 7 bytes in each of fragments 1..31.
	FastPacketMaxSize = 6 + 31*7

	// DefaultPriority is used for frames bmlog transmits.
	DefaultPriority uint8 = 6
)

// PGNs handled by bmlog.
const (
	// PGNBatteryStatus is the standard single-frame battery status
	// broadcast (voltage, current, temperature per instance).
	PGNBatteryStatus uint32 = 127508

	// PGNPrivateLog is the battery monitor's manufacturer-proprietary
	// fast-packet PGN carrying log requests, pages and errors.
	PGNPrivateLog uint32 = 130832
)

// Header is the decoded form of a 29-bit CAN identifier.
type Header struct {
	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
}

// ParseID decodes a 29-bit extended CAN identifier. For PDU1 PGNs
// (PDU format below 240) the PDU specific byte is the destination
// address and is not part of the PGN; PDU2 PGNs are broadcast.
func ParseID(id uint32) Header {
	header := Header{
		Priority: uint8((id >> 26) & 0x7),
		Source:   uint8(id & 0xff),
	}
	pduFormat := (id >> 16) & 0xff
	if pduFormat < 240 {
		header.PGN = (id >> 8) & 0x3ff00
		header.Destination = uint8((id >> 8) & 0xff)
	} else {
		header.PGN = (id >> 8) & 0x3ffff
		header.Destination = AddressGlobal
	}
	return header
}

// ID encodes the header as a 29-bit CAN identifier.
func (h Header) ID() uint32 {
	id := uint32(h.Priority&0x7)<<26 | uint32(h.Source)
	if (h.PGN>>8)&0xff < 240 {
		id |= (h.PGN&0x3ff00 | uint32(h.Destination)) << 8
	} else {
		id |= (h.PGN & 0x3ffff) << 8
	}
	return id
}

// Frame is one transport-level CAN frame: a header and up to 8 bytes
// of payload.
type Frame struct {
	Header
	Len  uint8
	Data [8]byte
}

// NewFrame builds a frame carrying payload. Bytes beyond the eighth
// are ignored.
func NewFrame(header Header, payload []byte) Frame {
	frame := Frame{Header: header}
	frame.Len = uint8(copy(frame.Data[:], payload))
	return frame
}

// Payload returns the valid bytes of the frame.
func (f Frame) Payload() []byte {
	if f.Len > 8 {
		return f.Data[:]
	}
	return f.Data[:f.Len]
}

func (f Frame) String() string {
	return fmt.Sprintf("pgn=%d src=%d dst=%d prio=%d data=% x",
		f.PGN, f.Source, f.Destination, f.Priority, f.Payload())
}

// Message is a complete application message: one single-frame payload
// or a fully reassembled fast packet.
type Message struct {
	Header
	Data []byte
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package n2k

import (
	"fmt"
	"sync"
)

// FrameWriter is the outbound side of a transport.
type FrameWriter interface {
	WriteFrame(Frame) error
}

// Transmitter sends single-frame and fast-packet messages from one
// source address. Fast-packet tags roll per PGN, once per message.
// Safe for concurrent use.
type Transmitter struct {
	writer FrameWriter

	mu     sync.Mutex
	source uint8
	tags   map[uint32]uint8
}

// NewTransmitter returns a Transmitter writing to writer as source.
func NewTransmitter(writer FrameWriter, source uint8) *Transmitter {
	return &Transmitter{
		writer: writer,
		source: source,
		tags:   make(map[uint32]uint8),
	}
}

// SetSource changes the source address used for subsequent frames.
func (t *Transmitter) SetSource(source uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source = source
}

// Send writes data (at most 8 bytes) as one frame.
func (t *Transmitter) Send(pgn uint32, destination uint8, data []byte) error {
	if len(data) > 8 {
		return fmt.Errorf("pgn %d: single frame payload of %d bytes exceeds 8", pgn, len(data))
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	frame := NewFrame(t.header(pgn, destination), data)
	if err := t.writer.WriteFrame(frame); err != nil {
		return fmt.Errorf("pgn %d: writing frame: %w", pgn, err)
	}
	return nil
}

// SendFast writes data (at most FastPacketMaxSize bytes) as a fast
// packet. The PGN's tag advances only after every fragment was
// written.
func (t *Transmitter) SendFast(pgn uint32, destination uint8, data []byte) error {
	if len(data) > FastPacketMaxSize {
		return fmt.Errorf("pgn %d: fast packet payload of %d bytes exceeds %d", pgn, len(data), FastPacketMaxSize)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	header := t.header(pgn, destination)
	tag := t.tags[pgn]
	for i, fragment := range Fragment(tag, data) {
		if err := t.writer.WriteFrame(NewFrame(header, fragment)); err != nil {
			return fmt.Errorf("pgn %d: writing fragment %d: %w", pgn, i, err)
		}
	}
	t.tags[pgn] = (tag + 1) & 0x7
	return nil
}

func (t *Transmitter) header(pgn uint32, destination uint8) Header {
	return Header{
		PGN:         pgn,
		Priority:    DefaultPriority,
		Source:      t.source,
		Destination: destination,
	}
}

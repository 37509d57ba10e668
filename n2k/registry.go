// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package n2k

// Decoder is one row of the registry table.
type Decoder struct {
	PGN         uint32
	Description string
	Enabled     bool

	// Handle consumes one frame of this PGN and reports whether it
	// produced a decoded result.
	Handle func(Frame) bool

	// Tick is called on every registry tick while the decoder is
	// enabled. May be nil.
	Tick func()
}

// SingleFrameDecoder returns an enabled decoder for a PGN whose
// messages fit in one frame.
func SingleFrameDecoder(pgn uint32, description string, decode func(Message) bool, tick func()) *Decoder {
	return &Decoder{
		PGN:         pgn,
		Description: description,
		Enabled:     true,
		Handle: func(frame Frame) bool {
			return decode(Message{
				Header: frame.Header,
				Data:   append([]byte(nil), frame.Payload()...),
			})
		},
		Tick: tick,
	}
}

// FastPacketDecoder returns an enabled decoder that reassembles fast
// packets before calling decode. Handle returns false for fragments
// that do not complete a message.
func FastPacketDecoder(pgn uint32, description string, decode func(Message) bool, tick func()) *Decoder {
	reassembler := NewReassembler()
	return &Decoder{
		PGN:         pgn,
		Description: description,
		Enabled:     true,
		Handle: func(frame Frame) bool {
			message, complete := reassembler.Feed(frame)
			if !complete {
				return false
			}
			return decode(message)
		},
		Tick: tick,
	}
}

// Registry maps PGNs to decoders. The table is fixed at construction;
// lookups are linear over it.
type Registry struct {
	decoders []*Decoder
}

// NewRegistry builds a registry over decoders, in order.
func NewRegistry(decoders ...*Decoder) *Registry {
	return &Registry{decoders: decoders}
}

// Handle dispatches frame to the decoder registered for its PGN. It
// returns false when no decoder matches, when the decoder is disabled
// (the decoder is not called), or when the decoder produced nothing.
func (r *Registry) Handle(frame Frame) bool {
	for _, decoder := range r.decoders {
		if decoder.PGN != frame.PGN {
			continue
		}
		if !decoder.Enabled {
			return false
		}
		return decoder.Handle(frame)
	}
	return false
}

// Tick runs the periodic callback of every enabled decoder.
func (r *Registry) Tick() {
	for _, decoder := range r.decoders {
		if decoder.Enabled && decoder.Tick != nil {
			decoder.Tick()
		}
	}
}

// Len returns the number of registered decoders.
func (r *Registry) Len() int {
	return len(r.decoders)
}

// ByIndex returns the decoder at position i.
func (r *Registry) ByIndex(i int) (*Decoder, bool) {
	if i < 0 || i >= len(r.decoders) {
		return nil, false
	}
	return r.decoders[i], true
}

// IndexOf returns the position of the decoder for pgn, or -1.
func (r *Registry) IndexOf(pgn uint32) int {
	for i, decoder := range r.decoders {
		if decoder.PGN == pgn {
			return i
		}
	}
	return -1
}

// Enable turns the decoder at position i on or off. Out of range
// indexes are ignored.
func (r *Registry) Enable(i int, enabled bool) {
	if i < 0 || i >= len(r.decoders) {
		return
	}
	r.decoders[i].Enabled = enabled
}

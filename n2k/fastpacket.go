// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package n2k

const (
	fastPacketTagShift  = 5
	fastPacketIndexMask = 0x1f

	firstFragmentData        = 6
	continuationFragmentData = 7
)

// Reassembler rebuilds fast packets of one PGN from their fragments.
// The zero value is not ready; use NewReassembler.
type Reassembler struct {
	buffer    [FastPacketMaxSize]byte
	tag       uint8
	index     int // last accepted fragment index, -1 when idle
	length    int
	remaining int
}

// NewReassembler returns an idle Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{index: -1}
}

// InProgress reports whether a message has been started but not
// completed.
func (r *Reassembler) InProgress() bool {
	return r.index >= 0
}

// Feed consumes one fragment. It returns the completed message and
// true when this fragment finishes one; otherwise the zero Message
// and false.
//
// Fragment 0 always starts a new message, abandoning any message in
// progress. A continuation is accepted only if it carries the in-
// progress tag and the next index; anything else is dropped without
// touching the context. A declared length above FastPacketMaxSize or
// a fragment too short for the bytes it must carry resets the context.
func (r *Reassembler) Feed(frame Frame) (Message, bool) {
	payload := frame.Payload()
	if len(payload) == 0 {
		return Message{}, false
	}
	tag := payload[0] >> fastPacketTagShift
	index := int(payload[0] & fastPacketIndexMask)

	switch {
	case index == 0:
		r.reset()
		if len(payload) < 2 {
			return Message{}, false
		}
		length := int(payload[1])
		if length > FastPacketMaxSize {
			return Message{}, false
		}
		n := min(firstFragmentData, length)
		if len(payload)-2 < n {
			return Message{}, false
		}
		copy(r.buffer[:], payload[2:2+n])
		r.tag = tag
		r.index = 0
		r.length = length
		r.remaining = length - n

	case r.index >= 0 && tag == r.tag && index == r.index+1:
		offset := firstFragmentData + (index-1)*continuationFragmentData
		n := min(continuationFragmentData, r.remaining, FastPacketMaxSize-offset)
		if len(payload)-1 < n {
			r.reset()
			return Message{}, false
		}
		copy(r.buffer[offset:], payload[1:1+n])
		r.index = index
		r.remaining -= n

	default:
		return Message{}, false
	}

	if r.remaining > 0 {
		return Message{}, false
	}
	message := Message{
		Header: frame.Header,
		Data:   append([]byte(nil), r.buffer[:r.length]...),
	}
	r.reset()
	return message, true
}

func (r *Reassembler) reset() {
	r.index = -1
	r.length = 0
	r.remaining = 0
}

// Fragment splits data into fast-packet frame payloads using tag.
// Data longer than FastPacketMaxSize is truncated.
func Fragment(tag uint8, data []byte) [][]byte {
	if len(data) > FastPacketMaxSize {
		data = data[:FastPacketMaxSize]
	}
	var fragments [][]byte
	position := 0
	for index := 0; index == 0 || position < len(data); index++ {
		header := (tag&0x7)<<fastPacketTagShift | uint8(index)
		var fragment []byte
		if index == 0 {
			n := min(firstFragmentData, len(data))
			fragment = append([]byte{header, uint8(len(data))}, data[:n]...)
			position = n
		} else {
			n := min(continuationFragmentData, len(data)-position)
			fragment = append([]byte{header}, data[position:position+n]...)
			position += n
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canbus

import (
	"encoding/binary"

	"github.com/bureau-foundation/bmlog/n2k"
)

// Linux struct can_frame layout (little-endian host order):
//
//	0..3  can_id with EFF/RTR/ERR flags in the top three bits
//	4     can_dlc
//	5..7  padding
//	8..15 data
const (
	wireFrameSize = 16

	canEFFFlag = 0x80000000
	canRTRFlag = 0x40000000
	canERRFlag = 0x20000000
	canEFFMask = 0x1fffffff
)

func marshalFrame(frame n2k.Frame) [wireFrameSize]byte {
	var wire [wireFrameSize]byte
	binary.LittleEndian.PutUint32(wire[0:4], frame.ID()|canEFFFlag)
	payload := frame.Payload()
	wire[4] = uint8(len(payload))
	copy(wire[8:], payload)
	return wire
}

func unmarshalFrame(wire []byte) (n2k.Frame, error) {
	if len(wire) < wireFrameSize {
		return n2k.Frame{}, errShortFrame
	}
	id := binary.LittleEndian.Uint32(wire[0:4])
	if id&canEFFFlag == 0 || id&(canRTRFlag|canERRFlag) != 0 {
		return n2k.Frame{}, errNotDataFrame
	}
	length := wire[4]
	if length > 8 {
		return n2k.Frame{}, errInvalidLength
	}
	return n2k.NewFrame(n2k.ParseID(id&canEFFMask), wire[8:8+length]), nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logsync

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/bmlog/logstore"
)

// Command is the first byte of every private log message.
type Command uint8

const (
	CommandRequestFirst Command = 0x01
	CommandRequestNext  Command = 0x02
	CommandRequest      Command = 0x03
	CommandReset        Command = 0x04

	CommandReply Command = 0x81
	CommandError Command = 0x82
)

func (c Command) String() string {
	switch c {
	case CommandRequestFirst:
		return "request-first"
	case CommandRequestNext:
		return "request-next"
	case CommandRequest:
		return "request"
	case CommandReset:
		return "reset"
	case CommandReply:
		return "reply"
	case CommandError:
		return "error"
	default:
		return fmt.Sprintf("command(%#02x)", uint8(c))
	}
}

// ErrorCode is carried by CommandError messages.
type ErrorCode uint8

const (
	// ErrorNotFound: the requested page index does not exist, usually
	// because the device log was reset.
	ErrorNotFound ErrorCode = 0x01

	// ErrorLast: there is no page after the requested one.
	ErrorLast ErrorCode = 0x02
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNotFound:
		return "not-found"
	case ErrorLast:
		return "last"
	default:
		return fmt.Sprintf("error(%#02x)", uint8(c))
	}
}

const (
	// ResetMagic is the index sent with CommandReset. The device
	// ignores resets carrying anything else.
	ResetMagic uint16 = 0x18e1

	// PageCapacity is the most records the device sends per page.
	PageCapacity = 51

	requestSize = 4
	replyHeader = 4
	recordSize  = 5

	// terminalFlag is set in a reply's index on the page's last
	// message.
	terminalFlag uint16 = 0x100

	tempAbsentRaw = 0xff
	tempOffset    = 233
)

var (
	errShortMessage   = errors.New("logsync: short message")
	errPartialRecord  = errors.New("logsync: reply length is not a whole number of records")
	errUnexpectedType = errors.New("logsync: unexpected command")
)

// Request is a client request.
type Request struct {
	Command   Command
	SessionID uint8
	Index     uint16
}

// Encode returns the 4-byte wire form.
func (r Request) Encode() []byte {
	data := make([]byte, requestSize)
	data[0] = uint8(r.Command)
	data[1] = r.SessionID
	binary.LittleEndian.PutUint16(data[2:4], r.Index)
	return data
}

// DecodeRequest parses a request.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) < requestSize {
		return Request{}, errShortMessage
	}
	return Request{
		Command:   Command(data[0]),
		SessionID: data[1],
		Index:     binary.LittleEndian.Uint16(data[2:4]),
	}, nil
}

// Record is one raw log record.
type Record struct {
	// TempRaw is Kelvin minus 233, or 0xff when no sensor reading.
	TempRaw uint8

	// Centivolts holds 11 bits of voltage in 0.01 V.
	Centivolts uint16

	// Milliamps is the 18-bit signed current in mA.
	Milliamps int32

	Instance uint8

	// Invalid mirrors bit 3 of the packed byte, set by the device
	// when the sample is not trustworthy.
	Invalid bool
}

func decodeRecord(data []byte) Record {
	packed := data[4]
	milliamps := int32(binary.LittleEndian.Uint16(data[2:4])) | int32((packed>>4)&0x3)<<16
	if milliamps&0x20000 != 0 {
		milliamps -= 1 << 18
	}
	return Record{
		TempRaw:    data[0],
		Centivolts: uint16(data[1]) | uint16(packed&0x7)<<8,
		Milliamps:  milliamps,
		Instance:   (packed >> 6) & 0x3,
		Invalid:    packed&0x8 != 0,
	}
}

func (r Record) encode(data []byte) {
	data[0] = r.TempRaw
	data[1] = uint8(r.Centivolts)
	raw := uint32(r.Milliamps) & 0x3ffff
	binary.LittleEndian.PutUint16(data[2:4], uint16(raw))
	packed := uint8(r.Centivolts>>8)&0x7 | uint8(raw>>16)<<4 | (r.Instance&0x3)<<6
	if r.Invalid {
		packed |= 0x8
	}
	data[4] = packed
}

// Entry converts the record to a store entry with the given id. A
// record with zero voltage, current and instance and a raw temperature
// of zero is the device's boot marker.
func (r Record) Entry(id uint32) logstore.Entry {
	entry := logstore.Entry{
		Volts:    float64(r.Centivolts) / 100,
		Amps:     float64(r.Milliamps) / 1000,
		Temp:     logstore.TempAbsent,
		Instance: r.Instance,
		ID:       id,
	}
	if r.TempRaw != tempAbsentRaw {
		entry.Temp = int(r.TempRaw) + tempOffset
	}
	if r.Centivolts == 0 && r.Milliamps == 0 && r.Instance == 0 && r.TempRaw == 0 {
		entry.Flags = logstore.FlagBoundary
	}
	return entry
}

// Reply is one device reply message. A page may span several replies;
// the last one has Terminal set.
type Reply struct {
	SessionID uint8
	Index     uint16
	Terminal  bool
	Records   []Record
}

// Encode returns the wire form of the reply.
func (r Reply) Encode() []byte {
	data := make([]byte, replyHeader+recordSize*len(r.Records))
	data[0] = uint8(CommandReply)
	data[1] = r.SessionID
	index := r.Index &^ terminalFlag
	if r.Terminal && len(r.Records) > 0 {
		index |= terminalFlag
	}
	binary.LittleEndian.PutUint16(data[2:4], index)
	for i, record := range r.Records {
		offset := replyHeader + i*recordSize
		record.encode(data[offset : offset+recordSize])
	}
	return data
}

// DecodeReply parses a CommandReply message. A reply without records
// is always terminal.
func DecodeReply(data []byte) (Reply, error) {
	if len(data) < 2 {
		return Reply{}, errShortMessage
	}
	if Command(data[0]) != CommandReply {
		return Reply{}, fmt.Errorf("%w: %s", errUnexpectedType, Command(data[0]))
	}
	reply := Reply{SessionID: data[1]}
	if len(data) <= replyHeader {
		if len(data) == replyHeader {
			reply.Index = binary.LittleEndian.Uint16(data[2:4]) &^ terminalFlag
		}
		reply.Terminal = true
		return reply, nil
	}
	if (len(data)-replyHeader)%recordSize != 0 {
		return Reply{}, errPartialRecord
	}

	index := binary.LittleEndian.Uint16(data[2:4])
	reply.Index = index &^ terminalFlag
	reply.Terminal = index&terminalFlag != 0
	reply.Records = make([]Record, 0, (len(data)-replyHeader)/recordSize)
	for offset := replyHeader; offset < len(data); offset += recordSize {
		reply.Records = append(reply.Records, decodeRecord(data[offset:offset+recordSize]))
	}
	return reply, nil
}

// ErrorReply is a CommandError message.
type ErrorReply struct {
	SessionID uint8
	Code      ErrorCode
}

// Encode returns the wire form of the error.
func (e ErrorReply) Encode() []byte {
	return []byte{uint8(CommandError), e.SessionID, uint8(e.Code)}
}

// DecodeError parses a CommandError message.
func DecodeError(data []byte) (ErrorReply, error) {
	if len(data) < 3 {
		return ErrorReply{}, errShortMessage
	}
	if Command(data[0]) != CommandError {
		return ErrorReply{}, fmt.Errorf("%w: %s", errUnexpectedType, Command(data[0]))
	}
	return ErrorReply{SessionID: data[1], Code: ErrorCode(data[2])}, nil
}

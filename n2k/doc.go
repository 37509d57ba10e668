// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package n2k implements the application layer of the NMEA 2000 bus as
// bmlog uses it: the 29-bit identifier <-> PGN mapping, fast-packet
// reassembly and transmission, and a fixed registry of per-PGN
// decoders.
//
// Frames arrive from a transport (see package canbus) and go through
// [Registry.Handle]. Each registered [Decoder] is either a single-frame
// decoder or a fast-packet decoder backed by its own [Reassembler], so
// fragments of different PGNs never share a buffer. A malformed or
// interleaved fragment sequence never produces a message: the instance
// is lost and the next fragment 0 starts over.
//
// Fast packet layout (up to 223 bytes of payload):
//
//	first frame:         tag<<5 | 0,   length, data[0:6]
//	continuation frames: tag<<5 | idx, data[6+(idx-1)*7 : 6+idx*7]
//
// The 3-bit tag distinguishes consecutive messages of the same PGN from
// the same sender; the 5-bit index numbers fragments within one message.
//
// Nothing in this package is safe for concurrent use except
// [Transmitter]. The monitor package owns a Registry from a single
// goroutine.
package n2k

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor drives the decoder registry from a CAN bus.
//
// [Monitor.Run] is the cooperative periodic driver: one goroutine owns
// the n2k.Registry (and so every reassembler and decoder behind it).
// It receives frames from a reader goroutine over a channel and calls
// Registry.Tick at a fixed cadence from a lib/clock ticker, so frame
// handling and ticks never interleave.
//
// [BatteryBoard] is the consumer of battery status readings: it keeps
// the latest reading per instance for the query socket and tells the
// log-sync session when the battery monitor disappears.
package monitor

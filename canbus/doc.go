// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package canbus moves n2k frames on and off a CAN bus.
//
// [Bus] is the transport contract the rest of bmlog consumes: a
// blocking ReadFrame and a WriteFrame. [SocketCAN] implements it over
// a Linux raw CAN socket (AF_CAN/CAN_RAW) bound to one interface, using
// the kernel's 16-byte struct can_frame. Only 29-bit data frames are
// surfaced; standard, remote and error frames are skipped since NMEA
// 2000 never uses them. [Memory] is an in-process bus for tests and
// for running the daemon against injected traffic.
//
// Address claim is not handled here. The daemon transmits from a
// configured source address.
package canbus

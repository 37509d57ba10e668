// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by the bmlog query
// socket server and its clients. Both sides encode through the same
// deterministic mode so a log block always serializes to identical
// bytes, and decode unknown fields leniently so an older bmlog CLI can
// talk to a newer daemon.
//
// The persisted history file is deliberately not CBOR: it stays the
// comma-separated text format that other tools read (see logstore).
package codec

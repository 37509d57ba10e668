// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bmlog is the command-line client of bmlogd. It talks to the daemon's
// query socket and prints the sync status, battery readings, and the
// stored battery monitor log one block at a time.
//
// A block is the run of entries between two device boot markers. Block
// commands print a cookie with each block; pass it to "bmlog next" or
// "bmlog prev" to walk the log. "bmlog export" writes every stored
// block as CSV, optionally zstd-compressed.
//
// The socket path defaults to the query.socket_path of the config named
// by BMLOG_CONFIG, or the built-in default; --socket overrides it.
package main

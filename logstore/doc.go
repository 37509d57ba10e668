// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logstore holds the battery monitor's event history: an
// append-only sequence of [Entry] values backed by a CSV file.
//
// The device logs one entry per battery instance every ten minutes and
// a boundary entry each time it boots. The Store keeps the history in
// memory in receipt order and answers block navigation queries, where
// a block is the run of entries between two boundaries. Blocks are
// recomputed from entry flags on every query; no index is stored.
//
// Device entries carry no timestamps. [Store.ReconstructTime] infers
// them after a sync by walking backward from the newest entry, which
// is assumed to have been logged "now".
//
// Persistence is incremental. The Store tracks how many entries are
// known to match the file (the watermark); [Store.Flush] appends
// entries past it, or atomically rewrites the whole file when the
// watermark was reset because an already-written entry changed. The
// previous file is kept with a "~" suffix across rewrites.
//
// A Store is not safe for concurrent use. The logsync Session owns it
// and serializes every access under its own lock.
package logstore

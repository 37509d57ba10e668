// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logsync pulls the battery monitor's event log into a
// logstore.Store.
//
// The device keeps an append-only log organized in numbered pages of
// up to 51 records. The client asks for pages over the private log
// PGN with a small request carrying a command, a session id and a
// page index; the device answers with reply messages holding 5-byte
// records, or with an error (index not found, no more pages). The wire
// format lives in wire.go.
//
// [Session] runs the request/response exchange. It has three states:
//
//	Idle            no request outstanding
//	RequestPending  a request is built and waits for the next tick
//	WaitPage        a request was sent; records accumulate in scratch
//
// and a reconciliation mode: Fresh pulls the whole device log into an
// empty store, Search re-reads from the page of the newest stored
// entry until it finds that entry, and Append commits everything after
// it. Records of a page are committed only when its terminal reply
// arrives; a retry after the one second timeout discards them.
//
// Replies carrying a session id other than the outstanding one are
// ignored. Every failure is either a retry or a protocol reset, so the
// session always makes progress or returns to Idle.
//
// All entry points take the session lock for their full duration.
// The same lock guards the Store, so navigation queries go through
// the Session as well.
package logsync

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package query serves the daemon's state to local clients over a
// Unix socket.
//
// The protocol is one CBOR request and one CBOR response per
// connection. A request is a map with an "action" field plus
// action-specific fields; the response is {ok, error, data}. CBOR is
// self-delimiting, so no framing is needed. [Server] dispatches
// actions to registered handlers, [Register] installs the bmlog
// actions (status, block navigation, battery readings, device log
// reset) and [Client] calls them.
//
// Handlers reach the log store only through the logsync Session, so
// queries are serialized with the sync state machine.
package query

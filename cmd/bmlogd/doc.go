// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bmlogd is the battery monitor log daemon. It listens on a SocketCAN
// interface, decodes battery status broadcasts, and keeps a local CSV
// copy of the battery monitor's event log in sync with the device.
//
// # Startup
//
// The daemon reads one YAML config file, named by --config or the
// BMLOG_CONFIG environment variable; without either it runs on the
// built-in defaults. --interface, --log-file and --socket override the
// corresponding config fields. The existing log file is loaded before
// the bus is opened, so the first sync cycle can search for the newest
// stored entry on the device.
//
// # Query socket
//
// A unix socket serves CBOR requests from the bmlog CLI: sync status,
// block navigation over the stored log, the latest battery readings,
// and the device log reset command.
//
// # Shutdown
//
// SIGINT or SIGTERM stops the receive loop and the query socket, then
// flushes any entries committed by an interrupted sync cycle.
package main

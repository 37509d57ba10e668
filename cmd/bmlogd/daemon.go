// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/bmlog/canbus"
	"github.com/bureau-foundation/bmlog/lib/clock"
	"github.com/bureau-foundation/bmlog/lib/config"
	"github.com/bureau-foundation/bmlog/lib/version"
	"github.com/bureau-foundation/bmlog/logstore"
	"github.com/bureau-foundation/bmlog/logsync"
	"github.com/bureau-foundation/bmlog/monitor"
	"github.com/bureau-foundation/bmlog/n2k"
	"github.com/bureau-foundation/bmlog/query"
)

// daemon owns the wired components of a running bmlogd.
type daemon struct {
	logger  *slog.Logger
	store   *logstore.Store
	session *logsync.Session
	board   *monitor.BatteryBoard
	monitor *monitor.Monitor
	server  *query.Server
}

func newDaemon(cfg *config.Config, bus canbus.Bus, clk clock.Clock, logger *slog.Logger) (*daemon, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Log.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Query.SocketPath), 0700); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}

	store, err := logstore.Open(cfg.Log.Path, logger.With("component", "logstore"))
	if err != nil {
		return nil, err
	}
	logger.Info("log loaded", "path", cfg.Log.Path, "entries", store.Len())

	session := logsync.NewSession(logsync.Config{
		Store:          store,
		Sender:         n2k.NewTransmitter(bus, cfg.Bus.SourceAddress),
		Clock:          clk,
		Logger:         logger.With("component", "logsync"),
		RetryTimeout:   cfg.Log.RetryTimeout.Std(),
		ResyncInterval: cfg.Log.ResyncInterval.Std(),
	})

	board := monitor.NewBatteryBoard(logger, session)
	battery := n2k.NewBatteryStatus(n2k.BatteryStatusConfig{
		Clock:      clk,
		Logger:     logger.With("component", "battery"),
		Consumer:   board,
		Listener:   session,
		StaleAfter: cfg.Monitor.BatteryStaleAfter.Std(),
	})

	registry := n2k.NewRegistry(
		battery.Decoder(),
		n2k.FastPacketDecoder(n2k.PGNPrivateLog, "battery monitor log", session.HandleMessage, session.Tick),
	)
	for i := 0; i < registry.Len(); i++ {
		decoder, _ := registry.ByIndex(i)
		if !cfg.DecoderEnabled(decoder.PGN) {
			registry.Enable(i, false)
			logger.Info("decoder disabled", "pgn", decoder.PGN, "description", decoder.Description)
		}
	}

	mon := monitor.New(monitor.Config{
		Bus:          bus,
		Registry:     registry,
		Clock:        clk,
		Logger:       logger.With("component", "monitor"),
		TickInterval: cfg.Monitor.TickInterval.Std(),
	})

	server := query.NewServer(cfg.Query.SocketPath, logger.With("component", "query"))
	query.Register(server, query.Handlers{
		Session: session,
		Battery: board,
		Frames:  mon,
		Version: version.Short(),
	})

	return &daemon{
		logger:  logger,
		store:   store,
		session: session,
		board:   board,
		monitor: mon,
		server:  server,
	}, nil
}

// run serves the query socket and drives the monitor until ctx is
// cancelled or the bus fails. Both goroutines have stopped when it
// returns.
func (d *daemon) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- d.server.Serve(ctx)
	}()

	monitorErr := d.monitor.Run(ctx)
	cancel()
	serveErr := <-serveDone

	// Entries committed by an interrupted cycle have not been flushed.
	if d.store.Pending() > 0 {
		if err := d.store.Flush(); err != nil {
			d.logger.Error("final flush failed", "error", err)
		}
	}

	if monitorErr != nil {
		return monitorErr
	}
	if serveErr != nil {
		return fmt.Errorf("query socket: %w", serveErr)
	}
	d.logger.Info("bmlogd stopped")
	return nil
}

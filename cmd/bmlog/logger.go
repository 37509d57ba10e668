// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/bmlog/lib/config"
)

// loadCommandConfig reads the bmlog config named by BMLOG_CONFIG. A
// missing or broken config file is not fatal for a query: the CLI falls
// back to the defaults, which name the same socket a default daemon
// listens on.
func loadCommandConfig() *config.Config {
	cfg, err := config.LoadFile(os.Getenv(config.EnvironmentVariable))
	if err != nil {
		// LoadFile("") only expands the defaults.
		cfg, _ = config.LoadFile("")
	}
	return cfg
}

// newCommandLogger returns the logger for progress messages written to
// w, at the level named in the config's logging section. Records are
// text when w is a terminal and JSON otherwise, so an export run from a
// script leaves machine-readable records beside the exported file.
// The daemon's logging format setting does not apply here.
func newCommandLogger(w io.Writer, terminal bool, logging config.LoggingConfig) *slog.Logger {
	level, err := config.ParseLevel(logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

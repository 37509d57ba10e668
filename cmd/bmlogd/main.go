// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bmlog/canbus"
	"github.com/bureau-foundation/bmlog/lib/clock"
	"github.com/bureau-foundation/bmlog/lib/config"
	"github.com/bureau-foundation/bmlog/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags. Non-empty overrides replace the
// matching config field after the file is loaded.
type options struct {
	configPath  string
	iface       string
	logFile     string
	socketPath  string
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("bmlogd", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to bmlog.yaml (default: $BMLOG_CONFIG, then built-in defaults)")
	flagSet.StringVar(&opts.iface, "interface", "", "SocketCAN interface (overrides bus.interface)")
	flagSet.StringVar(&opts.logFile, "log-file", "", "CSV log file (overrides log.path)")
	flagSet.StringVar(&opts.socketPath, "socket", "", "query socket path (overrides query.socket_path)")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if flagSet.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return opts, nil
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv(config.EnvironmentVariable)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.iface != "" {
		cfg.Bus.Interface = opts.iface
	}
	if opts.logFile != "" {
		cfg.Log.Path = opts.logFile
	}
	if opts.socketPath != "" {
		cfg.Query.SocketPath = opts.socketPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	// Validate has already rejected unknown levels.
	level, _ := config.ParseLevel(cfg.Level)
	options := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, options))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, options))
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("bmlogd %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := canbus.Open(cfg.Bus.Interface, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	d, err := newDaemon(cfg, bus, clock.Real(), logger)
	if err != nil {
		return err
	}

	logger.Info("bmlogd running",
		"version", version.Short(),
		"interface", cfg.Bus.Interface,
		"log", cfg.Log.Path,
		"socket", cfg.Query.SocketPath,
	)
	return d.run(ctx)
}

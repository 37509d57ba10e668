// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadCommandConfig()
	a := &app{
		ctx:           ctx,
		stdout:        os.Stdout,
		logger:        newCommandLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), cfg.Logging),
		styled:        term.IsTerminal(int(os.Stdout.Fd())),
		defaultSocket: cfg.Query.SocketPath,
	}
	return a.rootCommand().Execute(os.Args[1:], os.Stderr)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bmlog/lib/version"
	"github.com/bureau-foundation/bmlog/logstore"
	"github.com/bureau-foundation/bmlog/query"
)

// app carries what every command needs.
type app struct {
	ctx    context.Context
	stdout io.Writer
	logger *slog.Logger

	// styled enables terminal styling of headings.
	styled bool

	// defaultSocket is the --socket default; resolved from the config
	// when empty.
	defaultSocket string
	socketPath    string
}

func (a *app) socketDefault() string {
	if a.defaultSocket != "" {
		return a.defaultSocket
	}
	a.defaultSocket = loadCommandConfig().Query.SocketPath
	return a.defaultSocket
}

// flags returns a Flags func with --socket plus whatever extra adds.
func (a *app) flags(name string, extra func(*pflag.FlagSet)) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		flagSet.StringVar(&a.socketPath, "socket", a.socketDefault(), "bmlogd query socket")
		if extra != nil {
			extra(flagSet)
		}
		return flagSet
	}
}

func (a *app) client() *query.Client {
	return query.NewClient(a.socketPath)
}

func (a *app) rootCommand() *Command {
	return &Command{
		Name:    "bmlog",
		Summary: "Query the battery monitor log daemon",
		Subcommands: []*Command{
			a.statusCommand(),
			a.blockCommand(),
			a.navigateCommand("next", "Show the block after COOKIE", query.ActionNextBlock),
			a.navigateCommand("prev", "Show the block before COOKIE", query.ActionPreviousBlock),
			a.batteryCommand(),
			a.exportCommand(),
			a.resetCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(a.stdout, "bmlog %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

func (a *app) statusCommand() *Command {
	return &Command{
		Name:    "status",
		Summary: "Show the log sync status",
		Flags:   a.flags("status", nil),
		Run: func(args []string) error {
			status, err := a.client().Status(a.ctx)
			if err != nil {
				return err
			}
			if skew := version.CompareDaemon(status.Version); skew.Differs {
				a.logger.Warn("bmlog and bmlogd releases differ", "releases", skew.String())
			}
			return printStatus(a.stdout, status)
		},
	}
}

func (a *app) blockCommand() *Command {
	return &Command{
		Name:    "block",
		Summary: "Show the newest block, or the block containing COOKIE",
		Usage:   "bmlog block [COOKIE] [flags]",
		Flags:   a.flags("block", nil),
		Run: func(args []string) error {
			cookie := query.NewestBlock
			if len(args) > 1 {
				return fmt.Errorf("usage: bmlog block [COOKIE]")
			}
			if len(args) == 1 {
				var err error
				if cookie, err = parseCookie(args[0]); err != nil {
					return err
				}
			}
			block, err := a.client().Block(a.ctx, cookie)
			if err != nil {
				return err
			}
			return a.showBlock(block)
		},
	}
}

func (a *app) navigateCommand(name, summary, action string) *Command {
	return &Command{
		Name:    name,
		Summary: summary,
		Usage:   "bmlog " + name + " COOKIE [flags]",
		Flags:   a.flags(name, nil),
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: bmlog %s COOKIE", name)
			}
			cookie, err := parseCookie(args[0])
			if err != nil {
				return err
			}
			client := a.client()
			var block query.BlockResponse
			if action == query.ActionNextBlock {
				block, err = client.NextBlock(a.ctx, cookie)
			} else {
				block, err = client.PreviousBlock(a.ctx, cookie)
			}
			if err != nil {
				return err
			}
			return a.showBlock(block)
		},
	}
}

func (a *app) showBlock(block query.BlockResponse) error {
	if !block.Found {
		fmt.Fprintln(a.stdout, "no such block")
		return &ExitError{Code: 1}
	}
	return printBlock(a.stdout, block, a.styled)
}

func (a *app) batteryCommand() *Command {
	return &Command{
		Name:    "battery",
		Summary: "Show the latest battery status readings",
		Flags:   a.flags("battery", nil),
		Run: func(args []string) error {
			battery, err := a.client().Battery(a.ctx)
			if err != nil {
				return err
			}
			if len(battery.Readings) == 0 {
				fmt.Fprintln(a.stdout, "no battery status received")
				return &ExitError{Code: 1}
			}
			return printBattery(a.stdout, battery)
		},
	}
}

func (a *app) resetCommand() *Command {
	var confirmed bool
	return &Command{
		Name:    "reset-device-log",
		Summary: "Erase the log stored on the battery monitor",
		Flags: a.flags("reset-device-log", func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&confirmed, "yes", false, "confirm erasing the device log")
		}),
		Run: func(args []string) error {
			if !confirmed {
				return fmt.Errorf("this erases the battery monitor's log; pass --yes to confirm")
			}
			if err := a.client().ResetDeviceLog(a.ctx); err != nil {
				return err
			}
			a.logger.Info("device log reset requested", "socket", a.socketPath)
			return nil
		},
	}
}

func (a *app) exportCommand() *Command {
	var (
		output   string
		compress bool
	)
	return &Command{
		Name:    "export",
		Summary: "Write every stored block as CSV, oldest first",
		Flags: a.flags("export", func(flagSet *pflag.FlagSet) {
			flagSet.StringVarP(&output, "output", "o", "", "output file (default: stdout)")
			flagSet.BoolVar(&compress, "zstd", false, "zstd-compress the output")
		}),
		Run: func(args []string) error {
			entries, blocks, err := a.collectEntries()
			if err != nil {
				return err
			}

			destination := a.stdout
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				destination = file
			}
			if err := writeExport(destination, entries, compress); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			a.logger.Info("exported log", "blocks", blocks, "entries", len(entries), "zstd", compress)
			return nil
		},
	}
}

// collectEntries walks from the newest block back to the oldest and
// returns the entries in log order.
func (a *app) collectEntries() ([]logstore.Entry, int, error) {
	client := a.client()
	block, err := client.Block(a.ctx, query.NewestBlock)
	if err != nil {
		return nil, 0, err
	}

	var blocks []query.BlockResponse
	for block.Found {
		blocks = append(blocks, block)
		block, err = client.PreviousBlock(a.ctx, block.Cookie)
		if err != nil {
			return nil, 0, err
		}
	}

	var entries []logstore.Entry
	for i := len(blocks) - 1; i >= 0; i-- {
		for _, record := range blocks[i].Entries {
			entries = append(entries, record.Entry())
		}
	}
	return entries, len(blocks), nil
}

func writeExport(w io.Writer, entries []logstore.Entry, compress bool) error {
	if !compress {
		return logstore.WriteCSV(w, entries)
	}
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := logstore.WriteCSV(encoder, entries); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}

func parseCookie(text string) (int, error) {
	cookie, err := strconv.Atoi(text)
	if err != nil || cookie < 0 {
		return 0, fmt.Errorf("invalid cookie %q", text)
	}
	return cookie, nil
}

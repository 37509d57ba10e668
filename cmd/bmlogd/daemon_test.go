// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/bmlog/canbus"
	"github.com/bureau-foundation/bmlog/lib/clock"
	"github.com/bureau-foundation/bmlog/lib/config"
	"github.com/bureau-foundation/bmlog/lib/testutil"
	"github.com/bureau-foundation/bmlog/logstore"
	"github.com/bureau-foundation/bmlog/n2k"
	"github.com/bureau-foundation/bmlog/query"
)

const deviceAddress = 0x23

type testDaemon struct {
	cfg    *config.Config
	bus    *canbus.Memory
	client *query.Client
	done   <-chan error
	cancel context.CancelFunc
}

func startDaemon(t *testing.T, modify func(*config.Config)) *testDaemon {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Path = filepath.Join(t.TempDir(), "data", "bmlog.csv")
	cfg.Query.SocketPath = filepath.Join(testutil.SocketDir(t), "bmlogd.sock")
	if modify != nil {
		modify(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := canbus.NewMemory()
	d, err := newDaemon(cfg, bus, clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)), logger)
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx) }()
	t.Cleanup(func() {
		cancel()
		bus.Close()
	})
	testutil.WaitForSocket(t, cfg.Query.SocketPath)

	return &testDaemon{
		cfg:    cfg,
		bus:    bus,
		client: query.NewClient(cfg.Query.SocketPath),
		done:   done,
		cancel: cancel,
	}
}

// waitForFrames polls the status action until the monitor has read
// count frames.
func (d *testDaemon) waitForFrames(t *testing.T, count uint64) query.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := d.client.Status(t.Context())
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status.Frames >= count {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("monitor read %d frames, want %d", status.Frames, count)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func batteryFrame() n2k.Frame {
	header := n2k.Header{PGN: n2k.PGNBatteryStatus, Priority: 6, Source: deviceAddress, Destination: n2k.AddressGlobal}
	return n2k.NewFrame(header, []byte{0, 0x04, 0x05, 0x10, 0x27, 0x7b, 0x72, 0xff})
}

func TestDaemonServesStatus(t *testing.T) {
	d := startDaemon(t, nil)

	status, err := d.client.Status(t.Context())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != "idle" || status.DeviceKnown || status.Entries != 0 {
		t.Errorf("status = %+v", status)
	}

	if _, err := os.Stat(filepath.Dir(d.cfg.Log.Path)); err != nil {
		t.Errorf("log directory was not created: %v", err)
	}
}

func TestDaemonStartsSyncOnBatteryStatus(t *testing.T) {
	d := startDaemon(t, nil)

	if err := d.bus.Inject(batteryFrame()); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	status := d.waitForFrames(t, 1)
	if status.FramesHandled != 1 {
		t.Errorf("frames handled = %d, want 1", status.FramesHandled)
	}
	if !status.DeviceKnown || status.Device != deviceAddress {
		t.Errorf("device not announced: %+v", status)
	}
	if status.State == "idle" {
		t.Errorf("announcement should start a sync cycle, state = %s", status.State)
	}

	battery, err := d.client.Battery(t.Context())
	if err != nil {
		t.Fatalf("Battery: %v", err)
	}
	if len(battery.Readings) != 1 || battery.Readings[0].Volts != 12.84 {
		t.Errorf("battery = %+v", battery)
	}
}

func TestDaemonDisabledDecoder(t *testing.T) {
	d := startDaemon(t, func(cfg *config.Config) {
		cfg.Decoders = map[uint32]bool{n2k.PGNBatteryStatus: false}
	})

	if err := d.bus.Inject(batteryFrame()); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	status := d.waitForFrames(t, 1)
	if status.FramesHandled != 0 || status.DeviceKnown {
		t.Errorf("disabled decoder handled a frame: %+v", status)
	}
}

func TestDaemonLoadsExistingLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "bmlog.csv")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := logstore.Open(logPath, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Append(
		logstore.Entry{ID: logstore.EntryID(0, 0), Flags: logstore.FlagBoundary},
		logstore.Entry{ID: logstore.EntryID(0, 1), Volts: 12.5, Amps: 1, Temp: 290},
		logstore.Entry{ID: logstore.EntryID(0, 2), Volts: 12.6, Amps: 1, Temp: 290},
	)
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	d := startDaemon(t, func(cfg *config.Config) { cfg.Log.Path = logPath })

	block, err := d.client.Block(t.Context(), query.NewestBlock)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if !block.Found || len(block.Entries) != 2 {
		t.Fatalf("block = %+v", block)
	}
	if block.Entries[1].Volts != 12.6 {
		t.Errorf("newest entry volts = %v, want 12.6", block.Entries[1].Volts)
	}
}

func TestDaemonStopsOnCancel(t *testing.T) {
	d := startDaemon(t, nil)

	d.cancel()
	if err := testutil.RequireReceive(t, d.done, 5*time.Second, "waiting for daemon to stop"); err != nil {
		t.Errorf("run returned %v", err)
	}
	if _, err := os.Stat(d.cfg.Query.SocketPath); !os.IsNotExist(err) {
		t.Errorf("socket should be removed on shutdown, stat error = %v", err)
	}
}

func TestDaemonShutdownFlushesPendingRewrite(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "bmlog.csv")
	content := "instance,id,volts,amps,temp,time,flags\n" +
		"0,0x0,0,0,233,0,0x1\n" +
		"1,0x1,12.5,-1.25,293,0,0x0\n" +
		"not,a,valid,line,at,all,!\n"
	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d := startDaemon(t, func(cfg *config.Config) { cfg.Log.Path = logPath })
	d.cancel()
	if err := testutil.RequireReceive(t, d.done, 5*time.Second, "waiting for daemon to stop"); err != nil {
		t.Fatalf("run returned %v", err)
	}

	rewritten, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(rewritten), "not,a,valid") {
		t.Errorf("malformed line survived shutdown:\n%s", rewritten)
	}
	if lines := strings.Count(string(rewritten), "\n"); lines != 3 {
		t.Errorf("rewritten file has %d lines, want header and 2 entries:\n%s", lines, rewritten)
	}
	backup, err := os.ReadFile(logPath + logstore.BackupSuffix)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(backup) != content {
		t.Errorf("backup differs from the original file")
	}
}

func TestDaemonStopsOnBusError(t *testing.T) {
	d := startDaemon(t, nil)

	d.bus.Close()
	err := testutil.RequireReceive(t, d.done, 5*time.Second, "waiting for daemon to stop")
	if err == nil || !strings.Contains(err.Error(), "reading CAN bus") {
		t.Errorf("run returned %v, want a bus read error", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bmlog.yaml")
	if err := os.WriteFile(path, []byte("bus:\n  interface: vcan0\nlog:\n  path: /tmp/from-file.csv\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadConfig(options{configPath: path, socketPath: "/tmp/override.sock"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Bus.Interface != "vcan0" {
		t.Errorf("interface = %s, want vcan0", cfg.Bus.Interface)
	}
	if cfg.Log.Path != "/tmp/from-file.csv" {
		t.Errorf("log path = %s", cfg.Log.Path)
	}
	if cfg.Query.SocketPath != "/tmp/override.sock" {
		t.Errorf("socket = %s, want the flag override", cfg.Query.SocketPath)
	}

	cfg, err = loadConfig(options{configPath: path, iface: "can1"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Bus.Interface != "can1" {
		t.Errorf("interface = %s, want can1", cfg.Bus.Interface)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bmlog.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadConfig(options{configPath: path}); err == nil {
		t.Error("expected an invalid config error")
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "/etc/bmlog.yaml", "--interface", "vcan0", "--version"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.configPath != "/etc/bmlog.yaml" || opts.iface != "vcan0" || !opts.showVersion {
		t.Errorf("opts = %+v", opts)
	}

	if _, err := parseFlags([]string{"stray"}); err == nil {
		t.Error("expected error for positional argument")
	}
	if _, err := parseFlags([]string{"--no-such-flag"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

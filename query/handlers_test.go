// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/bmlog/lib/clock"
	"github.com/bureau-foundation/bmlog/lib/testutil"
	"github.com/bureau-foundation/bmlog/logstore"
	"github.com/bureau-foundation/bmlog/logsync"
	"github.com/bureau-foundation/bmlog/monitor"
	"github.com/bureau-foundation/bmlog/n2k"
)

// recordingSender is called from server goroutines.
type recordingSender struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (r *recordingSender) SendFast(pgn uint32, destination uint8, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, data)
	return nil
}

func (r *recordingSender) messages() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

func (r *recordingSender) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

type staticBattery struct {
	readings []n2k.BatteryReading
	lost     bool
}

func (s staticBattery) Readings() ([]n2k.BatteryReading, bool) { return s.readings, s.lost }

type staticFrames struct{ stats monitor.Stats }

func (s staticFrames) Stats() monitor.Stats { return s.stats }

// startDaemon serves the bmlog actions over a session whose store has
// boundaries at entries 0, 10 and 25 of 40.
func startDaemon(t *testing.T, sender *recordingSender) *Client {
	t.Helper()
	store, err := logstore.Open(filepath.Join(t.TempDir(), "bmlog.csv"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := range 40 {
		entry := logstore.Entry{
			Volts:    12 + float64(i)/100,
			Amps:     -0.5,
			Temp:     290,
			Instance: uint8(i % logstore.Instances),
			ID:       logstore.EntryID(uint16(i), 0),
			Time:     1_700_000_000 + int64(i)*600,
		}
		if i == 0 || i == 10 || i == 25 {
			entry = logstore.Entry{Temp: 233, ID: logstore.EntryID(uint16(i), 0), Flags: logstore.FlagBoundary}
		}
		store.Append(entry)
	}

	session := logsync.NewSession(logsync.Config{
		Store:  store,
		Sender: sender,
		Clock:  clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Logger: testLogger(),
	})

	socketPath := filepath.Join(testutil.SocketDir(t), "bmlogd.sock")
	server := NewServer(socketPath, testLogger())
	Register(server, Handlers{
		Session: session,
		Battery: staticBattery{readings: []n2k.BatteryReading{{
			Instance: 1, Volts: 12.84, Amps: -3.2, TempCelsius: 21.5, TempValid: true,
			Source: 0x23, Received: time.Unix(1_760_000_000, 0),
		}}},
		Frames:  staticFrames{stats: monitor.Stats{Frames: 120, Handled: 100}},
		Version: "test",
	})
	startServer(t, server, socketPath)
	return NewClient(socketPath)
}

func TestStatusAction(t *testing.T) {
	client := startDaemon(t, &recordingSender{})

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != "idle" || status.Mode != "idle" || status.Command != "" {
		t.Errorf("status = %+v, want idle", status)
	}
	if status.Entries != 40 || status.Written != 0 {
		t.Errorf("entries/written = %d/%d, want 40/0", status.Entries, status.Written)
	}
	if status.Frames != 120 || status.FramesHandled != 100 || status.Version != "test" {
		t.Errorf("status = %+v", status)
	}
	if status.LastSync != 0 {
		t.Errorf("LastSync = %d before any sync", status.LastSync)
	}
}

func TestBlockNavigationActions(t *testing.T) {
	client := startDaemon(t, &recordingSender{})
	ctx := context.Background()

	newest, err := client.Block(ctx, NewestBlock)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if !newest.Found || newest.Cookie != 26 || len(newest.Entries) != 14 {
		t.Fatalf("newest block: found=%v cookie=%d entries=%d", newest.Found, newest.Cookie, len(newest.Entries))
	}
	first := newest.Entries[0].Entry()
	if first.Page() != 26 || first.Time != 1_700_000_000+26*600 || first.Temp != 290 {
		t.Errorf("first entry of newest block = %v", first)
	}

	previous, err := client.PreviousBlock(ctx, newest.Cookie)
	if err != nil {
		t.Fatalf("PreviousBlock: %v", err)
	}
	if !previous.Found || previous.Cookie != 11 || len(previous.Entries) != 14 {
		t.Errorf("previous block: found=%v cookie=%d entries=%d", previous.Found, previous.Cookie, len(previous.Entries))
	}

	oldest, err := client.PreviousBlock(ctx, previous.Cookie)
	if err != nil {
		t.Fatalf("PreviousBlock: %v", err)
	}
	if !oldest.Found || oldest.Cookie != 1 || len(oldest.Entries) != 9 {
		t.Errorf("oldest block: found=%v cookie=%d entries=%d", oldest.Found, oldest.Cookie, len(oldest.Entries))
	}

	none, err := client.PreviousBlock(ctx, oldest.Cookie)
	if err != nil {
		t.Fatalf("PreviousBlock: %v", err)
	}
	if none.Found {
		t.Errorf("block before the oldest: %+v", none)
	}

	next, err := client.NextBlock(ctx, oldest.Cookie)
	if err != nil {
		t.Fatalf("NextBlock: %v", err)
	}
	if !next.Found || next.Cookie != 11 {
		t.Errorf("next block: found=%v cookie=%d", next.Found, next.Cookie)
	}

	invalid, err := client.Block(ctx, 400)
	if err != nil {
		t.Fatalf("Block(400): %v", err)
	}
	if invalid.Found {
		t.Error("Block(400) found a block")
	}

	// The boundary at entry 10 selects the block that follows it.
	fromBoundary, err := client.Block(ctx, 10)
	if err != nil {
		t.Fatalf("Block(10): %v", err)
	}
	if !fromBoundary.Found || fromBoundary.Cookie != 11 {
		t.Errorf("block from boundary: found=%v cookie=%d", fromBoundary.Found, fromBoundary.Cookie)
	}

	err = client.Call(ctx, ActionBlock, map[string]any{"cookie": "newest"}, nil)
	var actionError *ActionError
	if !errors.As(err, &actionError) {
		t.Errorf("block with a string cookie returned %v, want ActionError", err)
	}
}

func TestBatteryAction(t *testing.T) {
	client := startDaemon(t, &recordingSender{})

	battery, err := client.Battery(context.Background())
	if err != nil {
		t.Fatalf("Battery: %v", err)
	}
	if battery.Lost || len(battery.Readings) != 1 {
		t.Fatalf("battery = %+v", battery)
	}
	reading := battery.Readings[0]
	if reading.Instance != 1 || reading.Volts != 12.84 || reading.Received != 1_760_000_000 || !reading.TempValid {
		t.Errorf("reading = %+v", reading)
	}
}

func TestResetDeviceLogAction(t *testing.T) {
	sender := &recordingSender{}
	client := startDaemon(t, sender)

	if err := client.ResetDeviceLog(context.Background()); err != nil {
		t.Fatalf("ResetDeviceLog: %v", err)
	}
	sent := sender.messages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	request, err := logsync.DecodeRequest(sent[0])
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if request.Command != logsync.CommandReset || request.Index != logsync.ResetMagic {
		t.Errorf("sent %+v, want reset", request)
	}

	sender.fail(errors.New("bus down"))
	err = client.ResetDeviceLog(context.Background())
	var actionError *ActionError
	if !errors.As(err, &actionError) {
		t.Errorf("failed reset returned %v, want ActionError", err)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/bmlog/lib/testutil"
	"github.com/bureau-foundation/bmlog/n2k"
)

var logHeader = n2k.Header{PGN: n2k.PGNPrivateLog, Priority: 6, Source: 0x23, Destination: n2k.AddressGlobal}

func TestMemoryInjectRead(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	frame := n2k.NewFrame(logHeader, []byte{1, 2, 3})
	if err := bus.Inject(frame); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	got, err := bus.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got != frame {
		t.Errorf("got %v, want %v", got, frame)
	}
}

func TestMemoryInjectFastReassembles(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i * 3)
	}
	if err := bus.InjectFast(logHeader, 2, payload); err != nil {
		t.Fatalf("InjectFast: %v", err)
	}

	reassembler := n2k.NewReassembler()
	for {
		frame, err := bus.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if message, ok := reassembler.Feed(frame); ok {
			if string(message.Data) != string(payload) {
				t.Fatalf("reassembled % x, want % x", message.Data, payload)
			}
			return
		}
	}
}

func TestMemoryWriteFrameOutbound(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	frame := n2k.NewFrame(logHeader, []byte{9})
	if err := bus.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got := testutil.RequireReceive(t, bus.Outbound(), 5*time.Second, "waiting for written frame")
	if got != frame {
		t.Errorf("got %v, want %v", got, frame)
	}
}

func TestMemoryReadFrameContext(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := bus.ReadFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMemoryClose(t *testing.T) {
	bus := NewMemory()

	result := make(chan error, 1)
	go func() {
		_, err := bus.ReadFrame(context.Background())
		result <- err
	}()

	bus.Close()
	bus.Close()

	if err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for ReadFrame to return"); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadFrame err = %v, want ErrClosed", err)
	}
	if err := bus.WriteFrame(n2k.Frame{}); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteFrame err = %v, want ErrClosed", err)
	}
	if err := bus.Inject(n2k.Frame{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Inject err = %v, want ErrClosed", err)
	}
}

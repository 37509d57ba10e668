// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package n2k

import (
	"bytes"
	"testing"
)

type recordingDecoder struct {
	messages []Message
	ticks    int
}

func (r *recordingDecoder) decode(message Message) bool {
	r.messages = append(r.messages, message)
	return true
}

func (r *recordingDecoder) tick() { r.ticks++ }

func TestRegistryDispatchByPGN(t *testing.T) {
	battery := &recordingDecoder{}
	log := &recordingDecoder{}
	registry := NewRegistry(
		SingleFrameDecoder(PGNBatteryStatus, "battery status", battery.decode, battery.tick),
		FastPacketDecoder(PGNPrivateLog, "private log", log.decode, log.tick),
	)

	single := NewFrame(Header{PGN: PGNBatteryStatus, Source: 7}, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if !registry.Handle(single) {
		t.Fatal("single frame not handled")
	}
	if len(battery.messages) != 1 || !bytes.Equal(battery.messages[0].Data, single.Payload()) {
		t.Fatalf("battery decoder got %v", battery.messages)
	}

	data := patterned(20, 3)
	fragments := Fragment(2, data)
	for i, fragment := range fragments {
		handled := registry.Handle(NewFrame(Header{PGN: PGNPrivateLog, Source: 7}, fragment))
		if last := i == len(fragments)-1; handled != last {
			t.Fatalf("fragment %d: Handle = %v, want %v", i, handled, last)
		}
	}
	if len(log.messages) != 1 || !bytes.Equal(log.messages[0].Data, data) {
		t.Fatalf("log decoder got %v", log.messages)
	}

	if registry.Handle(NewFrame(Header{PGN: 130306}, []byte{1})) {
		t.Error("unregistered PGN reported as handled")
	}
}

func TestRegistryDisabledDecoderNotCalled(t *testing.T) {
	battery := &recordingDecoder{}
	registry := NewRegistry(SingleFrameDecoder(PGNBatteryStatus, "battery status", battery.decode, battery.tick))

	index := registry.IndexOf(PGNBatteryStatus)
	if index != 0 {
		t.Fatalf("IndexOf = %d, want 0", index)
	}
	registry.Enable(index, false)

	if registry.Handle(NewFrame(Header{PGN: PGNBatteryStatus}, []byte{1, 2, 3, 4, 5, 6, 7})) {
		t.Error("disabled decoder reported handled")
	}
	registry.Tick()
	if len(battery.messages) != 0 || battery.ticks != 0 {
		t.Errorf("disabled decoder invoked: %d messages, %d ticks", len(battery.messages), battery.ticks)
	}

	registry.Enable(index, true)
	registry.Tick()
	if battery.ticks != 1 {
		t.Errorf("ticks = %d after re-enable, want 1", battery.ticks)
	}
}

func TestRegistryLookups(t *testing.T) {
	registry := NewRegistry(
		SingleFrameDecoder(PGNBatteryStatus, "battery status", func(Message) bool { return true }, nil),
		FastPacketDecoder(PGNPrivateLog, "private log", func(Message) bool { return true }, nil),
	)
	if registry.Len() != 2 {
		t.Fatalf("Len = %d, want 2", registry.Len())
	}
	if got := registry.IndexOf(PGNPrivateLog); got != 1 {
		t.Errorf("IndexOf(private log) = %d, want 1", got)
	}
	if got := registry.IndexOf(12345); got != -1 {
		t.Errorf("IndexOf(unknown) = %d, want -1", got)
	}
	decoder, ok := registry.ByIndex(1)
	if !ok || decoder.Description != "private log" {
		t.Errorf("ByIndex(1) = %+v, %v", decoder, ok)
	}
	if _, ok := registry.ByIndex(2); ok {
		t.Error("ByIndex(2) succeeded on a two-entry table")
	}
	// Tick with nil callbacks must not panic.
	registry.Tick()
	registry.Enable(5, false)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package n2k

import (
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/bureau-foundation/bmlog/lib/clock"
)

// DefaultBatteryStaleAfter is how long the battery status decoder
// waits for a frame before reporting that data was lost.
const DefaultBatteryStaleAfter = 5 * time.Second

// BatteryReading is one decoded battery status frame.
type BatteryReading struct {
	Instance    uint8
	Volts       float64
	Amps        float64
	TempCelsius float64
	// TempValid is false when the sender reported the temperature as
	// unavailable.
	TempValid bool
	Source    uint8
	Received  time.Time
}

// BatteryConsumer receives decoded battery readings.
type BatteryConsumer interface {
	BatteryStatus(BatteryReading)
	// BatteryLost is called once when no reading arrived within the
	// staleness window.
	BatteryLost()
}

// AddressListener is told when the battery monitor shows up on the bus
// at a new source address.
type AddressListener interface {
	DeviceAnnounced(address uint8)
}

// BatteryStatusConfig holds the collaborators of a BatteryStatus
// decoder. Consumer and Listener may be nil.
type BatteryStatusConfig struct {
	Clock      clock.Clock
	Logger     *slog.Logger
	Consumer   BatteryConsumer
	Listener   AddressListener
	StaleAfter time.Duration
}

// BatteryStatus decodes PGN 127508 frames from the battery monitor.
// The first frame after construction or after the data went stale, and
// any change of source address, is reported to the address listener:
// that is how the log-sync session learns the device was (re)announced.
type BatteryStatus struct {
	clock      clock.Clock
	logger     *slog.Logger
	consumer   BatteryConsumer
	listener   AddressListener
	staleAfter time.Duration

	lastReceived time.Time
	address      int // -1 until the first frame
	stale        bool
}

// NewBatteryStatus returns a decoder that considers data fresh as of
// construction.
func NewBatteryStatus(config BatteryStatusConfig) *BatteryStatus {
	staleAfter := config.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultBatteryStaleAfter
	}
	return &BatteryStatus{
		clock:        config.Clock,
		logger:       config.Logger,
		consumer:     config.Consumer,
		listener:     config.Listener,
		staleAfter:   staleAfter,
		lastReceived: config.Clock.Now(),
		address:      -1,
	}
}

// Decoder returns the registry entry for this decoder.
func (b *BatteryStatus) Decoder() *Decoder {
	return SingleFrameDecoder(PGNBatteryStatus, "battery status", b.decode, b.tick)
}

func (b *BatteryStatus) decode(message Message) bool {
	if len(message.Data) < 7 {
		b.logger.Debug("short battery status frame", "source", message.Source, "length", len(message.Data))
		return false
	}
	now := b.clock.Now()
	b.lastReceived = now
	b.stale = false

	rawTemp := binary.LittleEndian.Uint16(message.Data[5:7])
	reading := BatteryReading{
		Instance:    message.Data[0],
		Volts:       float64(int16(binary.LittleEndian.Uint16(message.Data[1:3]))) / 100,
		Amps:        float64(int16(binary.LittleEndian.Uint16(message.Data[3:5]))) / 1000,
		TempCelsius: float64(rawTemp)/100 - 273.15,
		TempValid:   rawTemp != 0xffff,
		Source:      message.Source,
		Received:    now,
	}

	if b.address != int(message.Source) {
		b.logger.Info("battery monitor address", "address", message.Source, "previous", b.address)
		b.address = int(message.Source)
		if b.listener != nil {
			b.listener.DeviceAnnounced(message.Source)
		}
	}
	if b.consumer != nil {
		b.consumer.BatteryStatus(reading)
	}
	return true
}

func (b *BatteryStatus) tick() {
	if b.stale || b.clock.Now().Sub(b.lastReceived) < b.staleAfter {
		return
	}
	b.stale = true
	// The next frame announces the device again, even from the same
	// address.
	b.address = -1
	b.logger.Warn("battery status stale", "since", b.lastReceived)
	if b.consumer != nil {
		b.consumer.BatteryLost()
	}
}

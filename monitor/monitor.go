// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/bmlog/canbus"
	"github.com/bureau-foundation/bmlog/lib/clock"
	"github.com/bureau-foundation/bmlog/n2k"
)

// DefaultTickInterval is the registry tick cadence.
const DefaultTickInterval = 100 * time.Millisecond

// frameQueueSize bounds the frames buffered between the reader and
// the dispatch loop.
const frameQueueSize = 256

// Config holds the dependencies of a Monitor.
type Config struct {
	Bus      canbus.Bus
	Registry *n2k.Registry
	Clock    clock.Clock
	Logger   *slog.Logger

	// TickInterval defaults to DefaultTickInterval.
	TickInterval time.Duration
}

// Stats counts frames seen by a Monitor.
type Stats struct {
	Frames  uint64
	Handled uint64
	Ticks   uint64
}

// Monitor feeds bus frames to a registry and ticks it.
type Monitor struct {
	bus          canbus.Bus
	registry     *n2k.Registry
	clock        clock.Clock
	logger       *slog.Logger
	tickInterval time.Duration

	frames  atomic.Uint64
	handled atomic.Uint64
	ticks   atomic.Uint64
}

// New returns a Monitor. Run starts it.
func New(config Config) *Monitor {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	return &Monitor{
		bus:          config.Bus,
		registry:     config.Registry,
		clock:        config.Clock,
		logger:       config.Logger,
		tickInterval: config.TickInterval,
	}
}

// Stats returns the frame counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Frames:  m.frames.Load(),
		Handled: m.handled.Load(),
		Ticks:   m.ticks.Load(),
	}
}

// Run dispatches frames and ticks until ctx is cancelled (returning
// nil) or the bus fails (returning the read error).
func (m *Monitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan n2k.Frame, frameQueueSize)
	readErrors := make(chan error, 1)
	go m.read(ctx, frames, readErrors)

	ticker := m.clock.NewTicker(m.tickInterval)
	defer ticker.Stop()

	m.logger.Info("monitor running", "tick_interval", m.tickInterval, "decoders", m.registry.Len())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErrors:
			return fmt.Errorf("reading CAN bus: %w", err)
		case frame := <-frames:
			if m.registry.Handle(frame) {
				m.handled.Add(1)
			}
			// Counted after dispatch: a reader that sees the frame
			// counted also sees its effects.
			m.frames.Add(1)
		case <-ticker.C:
			m.ticks.Add(1)
			m.registry.Tick()
		}
	}
}

func (m *Monitor) read(ctx context.Context, frames chan<- n2k.Frame, readErrors chan<- error) {
	for {
		frame, err := m.bus.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			readErrors <- err
			return
		}
		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

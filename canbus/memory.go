// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canbus

import (
	"context"
	"sync"

	"github.com/bureau-foundation/bmlog/n2k"
)

// Compile-time interface checks.
var (
	_ Bus = (*Memory)(nil)
	_ Bus = (*SocketCAN)(nil)
)

// memoryQueueSize bounds both directions of a Memory bus.
const memoryQueueSize = 1024

// Memory is an in-process Bus. Frames given to Inject are returned by
// ReadFrame; frames passed to WriteFrame appear on Outbound.
type Memory struct {
	inbound  chan n2k.Frame
	outbound chan n2k.Frame

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemory returns an open in-memory bus.
func NewMemory() *Memory {
	return &Memory{
		inbound:  make(chan n2k.Frame, memoryQueueSize),
		outbound: make(chan n2k.Frame, memoryQueueSize),
		closed:   make(chan struct{}),
	}
}

// Inject queues frame for ReadFrame. Blocks when the queue is full.
func (m *Memory) Inject(frame n2k.Frame) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}
	select {
	case m.inbound <- frame:
		return nil
	case <-m.closed:
		return ErrClosed
	}
}

// InjectFast queues data as the fragments of one fast packet.
func (m *Memory) InjectFast(header n2k.Header, tag uint8, data []byte) error {
	for _, fragment := range n2k.Fragment(tag, data) {
		if err := m.Inject(n2k.NewFrame(header, fragment)); err != nil {
			return err
		}
	}
	return nil
}

// Outbound delivers every frame written to the bus.
func (m *Memory) Outbound() <-chan n2k.Frame {
	return m.outbound
}

func (m *Memory) ReadFrame(ctx context.Context) (n2k.Frame, error) {
	select {
	case frame := <-m.inbound:
		return frame, nil
	case <-ctx.Done():
		return n2k.Frame{}, ctx.Err()
	case <-m.closed:
		return n2k.Frame{}, ErrClosed
	}
}

// WriteFrame queues frame on Outbound. Frames written while the queue
// is full are dropped, like a saturated bus.
func (m *Memory) WriteFrame(frame n2k.Frame) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}
	select {
	case m.outbound <- frame:
	default:
	}
	return nil
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

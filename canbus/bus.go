// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canbus

import (
	"context"
	"errors"

	"github.com/bureau-foundation/bmlog/n2k"
)

var (
	// ErrClosed is returned by operations on a closed bus.
	ErrClosed = errors.New("canbus: bus closed")

	// ErrUnsupported is returned by Open on platforms without
	// SocketCAN.
	ErrUnsupported = errors.New("canbus: SocketCAN is only available on linux")

	errShortFrame    = errors.New("canbus: short can_frame")
	errNotDataFrame  = errors.New("canbus: not an extended data frame")
	errInvalidLength = errors.New("canbus: invalid data length")
)

// Bus is a bidirectional CAN transport.
type Bus interface {
	// ReadFrame blocks until a frame arrives, ctx is cancelled, or the
	// bus is closed.
	ReadFrame(ctx context.Context) (n2k.Frame, error)

	// WriteFrame transmits one frame.
	WriteFrame(n2k.Frame) error

	Close() error
}

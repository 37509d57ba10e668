// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package canbus

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/bmlog/n2k"
)

// SocketCAN is unavailable on this platform.
type SocketCAN struct{}

// Open always fails with ErrUnsupported.
func Open(interfaceName string, logger *slog.Logger) (*SocketCAN, error) {
	return nil, ErrUnsupported
}

func (*SocketCAN) ReadFrame(context.Context) (n2k.Frame, error) { return n2k.Frame{}, ErrUnsupported }

func (*SocketCAN) WriteFrame(n2k.Frame) error { return ErrUnsupported }

func (*SocketCAN) Close() error { return nil }

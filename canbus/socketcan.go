// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package canbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/bmlog/n2k"
)

// readPollInterval bounds how long ReadFrame blocks before rechecking
// its context.
const readPollInterval = 250 * time.Millisecond

// SocketCAN is a Bus over a Linux raw CAN socket.
type SocketCAN struct {
	file          *os.File
	logger        *slog.Logger
	interfaceName string
}

// Open binds a raw CAN socket to the named interface (for example
// "can0"). The socket is non-blocking so the runtime poller can apply
// read deadlines and Close can interrupt a pending read.
func Open(interfaceName string, logger *slog.Logger) (*SocketCAN, error) {
	networkInterface, err := net.InterfaceByName(interfaceName)
	if err != nil {
		return nil, fmt.Errorf("looking up CAN interface %s: %w", interfaceName, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("creating CAN socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: networkInterface.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("binding CAN socket to %s: %w", interfaceName, err)
	}

	return &SocketCAN{
		file:          os.NewFile(uintptr(fd), "can:"+interfaceName),
		logger:        logger,
		interfaceName: interfaceName,
	}, nil
}

// ReadFrame returns the next extended data frame.
func (s *SocketCAN) ReadFrame(ctx context.Context) (n2k.Frame, error) {
	var wire [wireFrameSize]byte
	for {
		if err := ctx.Err(); err != nil {
			return n2k.Frame{}, err
		}
		if err := s.file.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
			return n2k.Frame{}, fmt.Errorf("setting read deadline on %s: %w", s.interfaceName, err)
		}
		n, err := s.file.Read(wire[:])
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, os.ErrClosed) {
				return n2k.Frame{}, ErrClosed
			}
			return n2k.Frame{}, fmt.Errorf("reading from %s: %w", s.interfaceName, err)
		}
		frame, err := unmarshalFrame(wire[:n])
		if err != nil {
			s.logger.Debug("skipping CAN frame", "interface", s.interfaceName, "error", err)
			continue
		}
		return frame, nil
	}
}

// WriteFrame transmits frame as an extended data frame.
func (s *SocketCAN) WriteFrame(frame n2k.Frame) error {
	wire := marshalFrame(frame)
	if _, err := s.file.Write(wire[:]); err != nil {
		if errors.Is(err, os.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("writing to %s: %w", s.interfaceName, err)
	}
	return nil
}

// Close releases the socket, unblocking any pending ReadFrame.
func (s *SocketCAN) Close() error {
	return s.file.Close()
}

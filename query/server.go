// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/bmlog/lib/codec"
)

// Response is the envelope of every reply. Data holds the action's
// result as embedded CBOR and is absent for actions with no result.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

const (
	// readTimeout bounds how long a client may take to send its request.
	readTimeout = 10 * time.Second

	// maxRequestSize bounds a single request. Every bmlog request is an
	// action name and at most a block cookie.
	maxRequestSize = 1024

	// maxResponseSize is the largest envelope the server will send and
	// the client will read. A block of a long-running device log is the
	// only response that comes near it.
	maxResponseSize = 4 * 1024 * 1024

	// writeTimeout is the deadline for writing a small response. Large
	// block responses get one more second per minimumWriteRate bytes.
	writeTimeout     = 5 * time.Second
	minimumWriteRate = 256 * 1024
)

// ErrResponseTooLarge is reported to the client when an action's
// result does not fit in maxResponseSize.
var ErrResponseTooLarge = errors.New("response exceeds size limit")

// action is a registered request handler. run receives the full CBOR
// request and decodes its own fields.
type action struct {
	name string
	run  func(ctx context.Context, raw []byte) (any, error)
}

// Server answers bmlog queries on a Unix socket: one CBOR request and
// one CBOR Response per connection. Actions are registered with Handle
// before Serve.
type Server struct {
	socketPath string
	actions    map[string]action
	logger     *slog.Logger

	// connections counts requests in flight; Serve waits for them.
	connections sync.WaitGroup
}

// NewServer returns a server that will listen on socketPath.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		actions:    make(map[string]action),
		logger:     logger,
	}
}

// Handle registers fn for the action name. The request is decoded into
// a Req before fn runs, so fn sees typed fields and a malformed request
// is rejected without calling it. Use struct{} for actions without
// parameters. A nil result yields {ok: true} with no data.
//
// Handle panics if name is already registered: the action table is
// fixed at startup and a duplicate is a programming error.
func Handle[Req any](s *Server, name string, fn func(ctx context.Context, request Req) (any, error)) {
	if _, exists := s.actions[name]; exists {
		panic(fmt.Sprintf("query.Server: duplicate handler for action %q", name))
	}
	s.actions[name] = action{
		name: name,
		run: func(ctx context.Context, raw []byte) (any, error) {
			var request Req
			if err := codec.Unmarshal(raw, &request); err != nil {
				return nil, fmt.Errorf("invalid %s request: %w", name, err)
			}
			return fn(ctx, request)
		},
	}
}

// Serve accepts connections until ctx is cancelled, then waits for
// requests in flight. A stale socket file left by a previous daemon is
// removed before listening, and the socket is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("query socket listening", "path", s.socketPath, "actions", len(s.actions))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.connections.Add(1)
		go func() {
			defer s.connections.Done()
			defer conn.Close()
			s.answer(ctx, conn)
		}()
	}

	s.connections.Wait()
	return nil
}

// answer reads one request from conn and writes its response.
func (s *Server) answer(ctx context.Context, conn net.Conn) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.reply(conn, "", failure(fmt.Sprintf("invalid request: %v", err)))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.reply(conn, "", failure(fmt.Sprintf("invalid request: %v", err)))
		return
	}
	if header.Action == "" {
		s.reply(conn, "", failure("missing required field: action"))
		return
	}

	handler, exists := s.actions[header.Action]
	if !exists {
		s.reply(conn, header.Action, failure(fmt.Sprintf("unknown action %q", header.Action)))
		return
	}

	started := time.Now()
	result, err := handler.run(ctx, raw)
	if err != nil {
		s.logger.Debug("action failed", "action", handler.name, "error", err)
		s.reply(conn, handler.name, failure(err.Error()))
		return
	}

	response, err := success(result)
	if err != nil {
		s.logger.Warn("action result not sent", "action", handler.name, "error", err)
		response = failure(err.Error())
	}
	written := s.reply(conn, handler.name, response)
	s.logger.Debug("action answered",
		"action", handler.name,
		"bytes", written,
		"duration", time.Since(started),
	)
}

// failure builds an error envelope.
func failure(message string) []byte {
	// An envelope of a bool and a string always encodes.
	encoded, _ := codec.Marshal(Response{OK: false, Error: message})
	return encoded
}

// success encodes result into an ok envelope. Results that would not
// fit in maxResponseSize are refused here rather than truncated on the
// wire, where the client would see only a decode error.
func success(result any) ([]byte, error) {
	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("internal: marshaling response: %w", err)
		}
		response.Data = data
	}
	encoded, err := codec.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("internal: marshaling response: %w", err)
	}
	if len(encoded) > maxResponseSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrResponseTooLarge, len(encoded), maxResponseSize)
	}
	return encoded, nil
}

// reply writes an encoded envelope under a deadline that grows with
// its size, and returns the number of bytes written.
func (s *Server) reply(conn net.Conn, actionName string, encoded []byte) int {
	conn.SetWriteDeadline(time.Now().Add(writeDeadline(len(encoded))))
	written, err := conn.Write(encoded)
	if err != nil {
		s.logger.Debug("failed to write response",
			"action", actionName,
			"bytes", len(encoded),
			"written", written,
			"error", err,
		)
	}
	return written
}

// writeDeadline is the time allowed to write a response of size bytes.
func writeDeadline(size int) time.Duration {
	return writeTimeout + time.Duration(size/minimumWriteRate)*time.Second
}

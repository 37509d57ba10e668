// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/bmlog/lib/codec"
)

const (
	dialTimeout = 5 * time.Second

	// responseReadTimeout covers the server's read timeout and its
	// write deadline for the largest response it will send.
	responseReadTimeout = readTimeout + writeTimeout + (maxResponseSize/minimumWriteRate)*time.Second
)

// ActionError is returned by Call when the server answers ok=false.
type ActionError struct {
	Action  string
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("bmlogd error on %q: %s", e.Action, e.Message)
}

// Client calls actions on a bmlogd query socket. Each call uses its
// own connection.
type Client struct {
	socketPath string
}

// NewClient returns a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends action with the given extra fields and decodes the
// response data into result (when both are non-nil). A server-side
// failure is returned as *ActionError.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		return &ActionError{Action: action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}

// Status returns the sync status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var status StatusResponse
	err := c.Call(ctx, ActionStatus, nil, &status)
	return status, err
}

// Block fetches the block at cookie (NewestBlock for the most recent).
func (c *Client) Block(ctx context.Context, cookie int) (BlockResponse, error) {
	return c.block(ctx, ActionBlock, cookie)
}

// NextBlock fetches the block after cookie's.
func (c *Client) NextBlock(ctx context.Context, cookie int) (BlockResponse, error) {
	return c.block(ctx, ActionNextBlock, cookie)
}

// PreviousBlock fetches the block before cookie's.
func (c *Client) PreviousBlock(ctx context.Context, cookie int) (BlockResponse, error) {
	return c.block(ctx, ActionPreviousBlock, cookie)
}

func (c *Client) block(ctx context.Context, action string, cookie int) (BlockResponse, error) {
	var block BlockResponse
	err := c.Call(ctx, action, map[string]any{"cookie": cookie}, &block)
	return block, err
}

// Battery returns the latest battery readings.
func (c *Client) Battery(ctx context.Context) (BatteryResponse, error) {
	var battery BatteryResponse
	err := c.Call(ctx, ActionBattery, nil, &battery)
	return battery, err
}

// ResetDeviceLog asks the daemon to clear the battery monitor's log.
func (c *Client) ResetDeviceLog(ctx context.Context) error {
	return c.Call(ctx, ActionResetDeviceLog, nil, nil)
}

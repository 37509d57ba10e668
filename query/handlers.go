// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/bmlog/logstore"
	"github.com/bureau-foundation/bmlog/logsync"
	"github.com/bureau-foundation/bmlog/monitor"
	"github.com/bureau-foundation/bmlog/n2k"
)

// LogSession is the part of *logsync.Session the handlers use.
type LogSession interface {
	Status() logsync.Status
	Block(cookie int) (logstore.Block, bool)
	NextBlock(cookie int) (logstore.Block, bool)
	PreviousBlock(cookie int) (logstore.Block, bool)
	RequestDeviceReset() error
}

// BatterySource provides battery readings; *monitor.BatteryBoard
// satisfies it.
type BatterySource interface {
	Readings() ([]n2k.BatteryReading, bool)
}

// FrameCounter provides bus statistics; *monitor.Monitor satisfies it.
type FrameCounter interface {
	Stats() monitor.Stats
}

// Handlers are the daemon collaborators behind the bmlog actions.
// Battery and Frames may be nil.
type Handlers struct {
	Session LogSession
	Battery BatterySource
	Frames  FrameCounter
	Version string
}

// Register installs every bmlog action on server.
func Register(server *Server, handlers Handlers) {
	Handle(server, ActionStatus, handlers.status)
	Handle(server, ActionBlock, handlers.blockAction(handlers.Session.Block))
	Handle(server, ActionNextBlock, handlers.blockAction(handlers.Session.NextBlock))
	Handle(server, ActionPreviousBlock, handlers.blockAction(handlers.Session.PreviousBlock))
	Handle(server, ActionBattery, handlers.battery)
	Handle(server, ActionResetDeviceLog, handlers.resetDeviceLog)
}

func (h Handlers) status(ctx context.Context, _ struct{}) (any, error) {
	status := h.Session.Status()
	response := StatusResponse{
		Version:     h.Version,
		State:       status.State.String(),
		Mode:        status.Mode.String(),
		SessionID:   status.Request.SessionID,
		Index:       status.Request.Index,
		Device:      status.Device,
		DeviceKnown: status.DeviceKnown,
		Entries:     status.Entries,
		Written:     status.Written,
		Retries:     status.Retries,
	}
	if status.Request.Command != 0 {
		response.Command = status.Request.Command.String()
	}
	if !status.LastSync.IsZero() {
		response.LastSync = status.LastSync.Unix()
	}
	if h.Frames != nil {
		stats := h.Frames.Stats()
		response.Frames = stats.Frames
		response.FramesHandled = stats.Handled
	}
	return response, nil
}

func (h Handlers) blockAction(lookup func(int) (logstore.Block, bool)) func(context.Context, blockRequest) (any, error) {
	return func(ctx context.Context, request blockRequest) (any, error) {
		block, found := lookup(request.Cookie)
		if !found {
			return BlockResponse{Found: false, Cookie: request.Cookie}, nil
		}
		response := BlockResponse{
			Found:   true,
			Cookie:  block.Cookie,
			Entries: make([]EntryRecord, len(block.Entries)),
		}
		for i, entry := range block.Entries {
			response.Entries[i] = entryRecord(entry)
		}
		return response, nil
	}
}

func (h Handlers) battery(ctx context.Context, _ struct{}) (any, error) {
	if h.Battery == nil {
		return nil, fmt.Errorf("battery status decoding is disabled")
	}
	readings, lost := h.Battery.Readings()
	response := BatteryResponse{Lost: lost}
	for _, reading := range readings {
		response.Readings = append(response.Readings, BatteryRecord{
			Instance:    reading.Instance,
			Volts:       reading.Volts,
			Amps:        reading.Amps,
			TempCelsius: reading.TempCelsius,
			TempValid:   reading.TempValid,
			Source:      reading.Source,
			Received:    reading.Received.Unix(),
		})
	}
	return response, nil
}

func (h Handlers) resetDeviceLog(ctx context.Context, _ struct{}) (any, error) {
	if err := h.Session.RequestDeviceReset(); err != nil {
		return nil, err
	}
	return nil, nil
}

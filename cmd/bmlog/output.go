// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/bmlog/logstore"
	"github.com/bureau-foundation/bmlog/query"
)

const timeLayout = "2006-01-02 15:04:05"

var headingStyle = lipgloss.NewStyle().Bold(true)

func printStatus(w io.Writer, status query.StatusResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "state:\t%s\n", status.State)
	fmt.Fprintf(tw, "mode:\t%s\n", status.Mode)
	if status.Command != "" {
		fmt.Fprintf(tw, "request:\t%s session %d index %d\n", status.Command, status.SessionID, status.Index)
	}
	if status.DeviceKnown {
		fmt.Fprintf(tw, "device:\t0x%02x\n", status.Device)
	} else {
		fmt.Fprintf(tw, "device:\tnot seen\n")
	}
	fmt.Fprintf(tw, "last sync:\t%s\n", ago(status.LastSync, "never"))
	fmt.Fprintf(tw, "entries:\t%d (%d written)\n", status.Entries, status.Written)
	fmt.Fprintf(tw, "retries:\t%d\n", status.Retries)
	fmt.Fprintf(tw, "frames:\t%d (%d decoded)\n", status.Frames, status.FramesHandled)
	if status.Version != "" {
		fmt.Fprintf(tw, "daemon:\t%s\n", status.Version)
	}
	return tw.Flush()
}

func printBlock(w io.Writer, block query.BlockResponse, styled bool) error {
	heading := fmt.Sprintf("block %d: %d entries", block.Cookie, len(block.Entries))
	if styled {
		heading = headingStyle.Render(heading)
	}
	fmt.Fprintln(w, heading)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "ID\tINST\tTIME\tVOLTS\tAMPS\tTEMP\t\n")
	for _, record := range block.Entries {
		entry := record.Entry()
		fmt.Fprintf(tw, "0x%08x\t%d\t%s\t%.2f\t%.3f\t%s\t\n",
			entry.ID, entry.Instance, entryTime(entry), entry.Volts, entry.Amps, kelvin(entry.Temp))
	}
	return tw.Flush()
}

func printBattery(w io.Writer, battery query.BatteryResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "INST\tVOLTS\tAMPS\tTEMP\tSOURCE\tUPDATED\n")
	for _, reading := range battery.Readings {
		temp := "-"
		if reading.TempValid {
			temp = fmt.Sprintf("%.1fC", reading.TempCelsius)
		}
		fmt.Fprintf(tw, "%d\t%.2f\t%.3f\t%s\t0x%02x\t%s\n",
			reading.Instance, reading.Volts, reading.Amps, temp, reading.Source, ago(reading.Received, "-"))
	}
	return tw.Flush()
}

// entryTime formats a reconstructed timestamp. Times inferred across a
// gap in the log are marked with "~".
func entryTime(entry logstore.Entry) string {
	if entry.Time == 0 {
		return "unknown"
	}
	formatted := time.Unix(entry.Time, 0).UTC().Format(timeLayout)
	if entry.Flags&logstore.FlagTrustedTime == 0 {
		return "~" + formatted
	}
	return formatted
}

func kelvin(temp int) string {
	if temp == logstore.TempAbsent {
		return "-"
	}
	return fmt.Sprintf("%.1fC", float64(temp)-273.15)
}

func ago(unix int64, zero string) string {
	if unix == 0 {
		return zero
	}
	return humanize.Time(time.Unix(unix, 0))
}

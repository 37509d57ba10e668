// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by every timer-driven
// part of bmlog: the log-sync retry and idle timers, the battery
// status staleness check, and the monitor's periodic tick.
//
// Production code takes a Clock instead of calling time.Now or
// time.NewTicker directly. Real() wraps the time package; Fake()
// returns a clock that only moves when Advance is called, so a test
// can step a session through a one second retry or a sixty second
// idle resync without sleeping.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go monitor.Run(ctx)
//	c.WaitForTimers(1)                  // monitor registered its ticker
//	c.Advance(100 * time.Millisecond)   // deliver one tick
package clock

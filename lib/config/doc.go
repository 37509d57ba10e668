// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bmlogd configuration file.
//
// Configuration comes from a single YAML file named by:
//   - the --config flag passed to the command, or
//   - the BMLOG_CONFIG environment variable
//
// [Default] supplies every field before the file is read, so a config
// file only needs to name what differs. Path fields support ${VAR} and
// ${VAR:-default} expansion; nothing else consults the environment.
//
// Durations are written the way [time.ParseDuration] accepts them
// ("100ms", "5s"). [Config.Validate] reports every problem at once,
// joined with [errors.Join].
package config

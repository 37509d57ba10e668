// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the release and build of the bmlog binaries
// and compares the bmlog CLI's release with the daemon it queries.
//
// Four variables can be injected at build time via -ldflags -X:
//
//   - [GitCommit]: short git SHA of the build
//   - [GitDirty]: "true" if there were uncommitted changes
//   - [BuildTime]: UTC timestamp of the build
//   - [Version]: release string, set for releases
//
// Without -ldflags the commit, dirty flag and time come from the VCS
// stamp embedded by the go command, and stay "unknown" in test
// binaries, which carry none.
//
// bmlogd puts [Short] in its status response. bmlog passes that to
// [CompareDaemon] and warns when the two releases differ, since block
// and status fields may have changed between them.
package version

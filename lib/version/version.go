// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Release builds set these with -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/bmlog/lib/version.Version=0.3.0 \
//	  -X github.com/bureau-foundation/bmlog/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is left unset, the commit, dirty flag and build time
// are taken from the VCS stamp the go command embeds in the binary.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC commit or build timestamp.
	BuildTime = "unknown"

	// Version is the bmlog release. bmlogd reports it in the status
	// action so that bmlog can detect a daemon from another release.
	Version = "0.1.0-dev"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// build returns the commit, dirty flag and time of this binary.
func build() (commit, dirty, built string) {
	commit, dirty, built = GitCommit, GitDirty, BuildTime
	if commit != "unknown" {
		return commit, dirty, built
	}
	info, ok := readBuildInfo()
	if !ok {
		return commit, dirty, built
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 7 {
				commit = commit[:7]
			}
		case "vcs.modified":
			dirty = setting.Value
		case "vcs.time":
			built = setting.Value
		}
	}
	return commit, dirty, built
}

// Info returns the release, commit and build time for --version.
func Info() string {
	commit, dirty, built := build()
	if dirty == "true" {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, built)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns the release alone. This is the string bmlogd reports
// over the query socket.
func Short() string {
	return Version
}

// Skew describes how the release of a running bmlogd compares with the
// bmlog binary talking to it.
type Skew struct {
	Client string
	Daemon string

	// Differs is true when both releases are known and not equal.
	Differs bool
}

// CompareDaemon compares the release a daemon reported with this
// binary's. An empty daemon release (an older daemon that did not
// report one) is treated as unknown, not as a mismatch.
func CompareDaemon(daemon string) Skew {
	skew := Skew{Client: Version, Daemon: strings.TrimSpace(daemon)}
	skew.Differs = skew.Daemon != "" && skew.Daemon != skew.Client
	return skew
}

// String formats the skew for a warning.
func (s Skew) String() string {
	switch {
	case s.Daemon == "":
		return fmt.Sprintf("bmlog %s, bmlogd unknown", s.Client)
	case !s.Differs:
		return "bmlog and bmlogd " + s.Client
	}
	return fmt.Sprintf("bmlog %s, bmlogd %s", s.Client, s.Daemon)
}

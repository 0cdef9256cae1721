// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package version holds build information set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version = "devel"
	Time    = "unknown"
	Commit  = "unknown"
)

// Info is the build information in a form suitable for JSON encoding.
type Info struct {
	Version   string `json:"version"`
	Time      string `json:"time"`
	Commit    string `json:"commit"`
	GoArch    string `json:"go_arch"`
	GoOS      string `json:"go_os"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Time:      Time,
		Commit:    Commit,
		GoArch:    runtime.GOARCH,
		GoOS:      runtime.GOOS,
		GoVersion: runtime.Version(),
	}
}

// String returns the build information as aligned lines.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version:\t%s\n", i.Version)
	fmt.Fprintf(&b, "Built time:\t%s\n", i.Time)
	fmt.Fprintf(&b, "Git commit:\t%s\n", i.Commit)
	fmt.Fprintf(&b, "Go Arch:\t%s\n", i.GoArch)
	fmt.Fprintf(&b, "Go OS:\t\t%s\n", i.GoOS)
	fmt.Fprintf(&b, "Go Version:\t%s\n", i.GoVersion)
	return b.String()
}

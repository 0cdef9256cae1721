// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package pac evaluates Proxy Auto-Config scripts with the Goja JavaScript VM.
// It supports the Mozilla FindProxyForURL entry point, the Microsoft IPv6 extension FindProxyForURLEx,
// and the standard helper functions.
package pac

import (
	"regexp"
	"sort"
)

var jsFunctionExpr = regexp.MustCompile(`function\s+([a-zA-Z0-9_]+)\s*\(`)

// SupportedFunctions returns the sorted names of the helper functions available to PAC scripts.
func SupportedFunctions() []string {
	all := make([]string, 0, len(builtins)+16)
	for _, m := range jsFunctionExpr.FindAllStringSubmatch(asciiPacUtilsScript, -1) {
		all = append(all, m[1])
	}
	for _, b := range builtins {
		all = append(all, b.name)
	}
	sort.Strings(all)

	return all
}

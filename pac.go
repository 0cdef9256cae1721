// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"github.com/saucelabs/preproxy/log"
)

// PACResolver evaluates a PAC script for the given URL and host.
// The result is the raw FindProxyForURL return value, e.g. "PROXY host:port; DIRECT".
// Implementations must be safe for concurrent use.
type PACResolver interface {
	FindProxyForURL(url, hostname string) (string, error)
}

type LoggingPACResolver struct {
	Resolver PACResolver
	Logger   log.StructuredLogger
}

func (r *LoggingPACResolver) FindProxyForURL(url, hostname string) (string, error) {
	s, err := r.Resolver.FindProxyForURL(url, hostname)
	if err != nil {
		r.Logger.Error("FindProxyForURL failed", "url", url, "host", hostname, "error", err)
	} else {
		r.Logger.Debug("FindProxyForURL", "url", url, "host", hostname, "result", s)
	}
	return s, err
}

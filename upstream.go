// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/saucelabs/preproxy/pac"
)

// Upstream identifies where traffic leaves the gateway.
// It is either Direct or the host:port of a remote proxy exactly as written in the PAC script.
// Upstreams are compared by string equality.
type Upstream string

// Direct is the upstream used when traffic goes straight to the origin server.
const Direct Upstream = "DIRECT"

func (u Upstream) IsDirect() bool {
	return u == Direct
}

func (u Upstream) String() string {
	return string(u)
}

// HostPort splits a proxy upstream into host and port.
func (u Upstream) HostPort() (HostPort, error) {
	if u.IsDirect() {
		return HostPort{}, fmt.Errorf("%s has no address", Direct)
	}
	host, port, err := net.SplitHostPort(string(u))
	if err != nil {
		return HostPort{}, err
	}
	hp := HostPort{Host: host, Port: port}
	return hp, hp.Validate()
}

// ParseUpstream parses a host:port string into an Upstream.
// The value "DIRECT" is accepted as well.
func ParseUpstream(val string) (Upstream, error) {
	val = strings.TrimSpace(val)
	if val == string(Direct) {
		return Direct, nil
	}
	u := Upstream(val)
	if _, err := u.HostPort(); err != nil {
		return "", fmt.Errorf("invalid upstream %q: %w", val, err)
	}
	return u, nil
}

// ParseDecision returns the upstream named by a FindProxyForURL result.
// Only the first alternative is considered, if it is "PROXY host:port" that proxy is returned.
// Anything else, including an empty or malformed result, means Direct.
func ParseDecision(result string) Upstream {
	p, err := pac.Proxies(result).First()
	if err != nil || p.Mode != pac.PROXY {
		return Direct
	}
	return Upstream(p.HostPort())
}

var pacProxyExpr = regexp.MustCompile(`PROXY\s+([^'":;\s]+):(\d+)`)

// EnumerateUpstreams scans the PAC script text for "PROXY host:port" tokens.
// It returns the distinct upstreams in order of first appearance.
// Ports outside of the valid range are skipped.
func EnumerateUpstreams(script string) []Upstream {
	var (
		res  []Upstream
		seen = make(map[Upstream]struct{})
	)
	for _, m := range pacProxyExpr.FindAllStringSubmatch(script, -1) {
		if !isPort(m[2]) {
			continue
		}
		u := Upstream(m[1] + ":" + m[2])
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		res = append(res, u)
	}
	return res
}

// isPort returns true iff port string is a valid port number.
func isPort(port string) bool {
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}

	return p >= 1 && p <= 65535
}

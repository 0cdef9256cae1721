// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Proxies is a FindProxyForURL result.
// It is a semicolon separated list of alternatives, each is "DIRECT" or "<type> <host>:<port>"
// where type is one of PROXY, HTTP, HTTPS, SOCKS, SOCKS4 or SOCKS5.
// An empty string means DIRECT.
//
// See https://developer.mozilla.org/en-US/docs/Web/HTTP/Proxy_servers_and_tunneling/Proxy_Auto-Configuration_PAC_file#return_value_format
type Proxies string

type Mode int

const (
	DIRECT Mode = iota
	PROXY
	HTTP
	HTTPS
	SOCKS
	SOCKS4
	SOCKS5
)

var modeNames = [...]string{"DIRECT", "PROXY", "HTTP", "HTTPS", "SOCKS", "SOCKS4", "SOCKS5"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func parseMode(s string) (Mode, bool) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), true
		}
	}
	return DIRECT, false
}

// Proxy is a single alternative of a FindProxyForURL result.
type Proxy struct {
	Mode Mode
	Host string
	Port string
}

func (p Proxy) IsDirect() bool {
	return p.Mode == DIRECT
}

// HostPort returns host:port of the proxy, it is empty for DIRECT.
func (p Proxy) HostPort() string {
	if p.IsDirect() {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

func (p Proxy) String() string {
	if p.IsDirect() {
		return DIRECT.String()
	}
	return p.Mode.String() + " " + p.HostPort()
}

func (s Proxies) String() string {
	return string(s)
}

// First parses the first alternative only, the rest of the result is not validated.
func (s Proxies) First() (Proxy, error) {
	first, _, _ := strings.Cut(string(s), ";")
	p, err := parseProxy(first)
	if err != nil {
		return Proxy{}, fmt.Errorf("invalid proxy %q: %w", first, err)
	}
	return p, nil
}

// All parses every alternative, empty alternatives are skipped.
func (s Proxies) All() ([]Proxy, error) {
	var res []Proxy
	for i, v := range strings.Split(string(s), ";") {
		if strings.TrimSpace(v) == "" {
			continue
		}
		p, err := parseProxy(v)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy at pos %d %q: %w", i, v, err)
		}
		res = append(res, p)
	}
	return res, nil
}

func parseProxy(s string) (Proxy, error) {
	f := strings.Fields(s)
	switch len(f) {
	case 0:
		return Proxy{Mode: DIRECT}, nil
	case 1:
		if f[0] == "DIRECT" {
			return Proxy{Mode: DIRECT}, nil
		}
		return Proxy{}, errors.New("missing host:port")
	case 2:
	default:
		return Proxy{}, errors.New("unexpected trailing data")
	}

	m, ok := parseMode(f[0])
	if !ok || m == DIRECT {
		return Proxy{}, fmt.Errorf("unknown proxy type %q", f[0])
	}
	host, port, err := net.SplitHostPort(f[1])
	if err != nil {
		return Proxy{}, err
	}

	return Proxy{Mode: m, Host: host, Port: port}, nil
}

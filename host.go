// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

type HostPort struct {
	Host string
	Port string
}

func (hp HostPort) Validate() error {
	if hp.Host == "" {
		return errors.New("missing host")
	}
	if hp.Port == "" {
		return errors.New("missing port")
	}

	if net.ParseIP(hp.Host) == nil && !isHostname(hp.Host) {
		return fmt.Errorf("invalid host %q", hp.Host)
	}
	if !isPort(hp.Port) {
		return fmt.Errorf("invalid port %q", hp.Port)
	}

	return nil
}

// Upstream returns the identity under which the gateway knows the remote proxy at hp.
// IPv6 hosts are bracketed as in PAC results.
func (hp HostPort) Upstream() Upstream {
	return Upstream(net.JoinHostPort(hp.Host, hp.Port))
}

func (hp HostPort) String() string {
	return net.JoinHostPort(hp.Host, hp.Port)
}

// isHostname reports whether s is a syntactically valid DNS name.
// Underscores are tolerated as they are common in corporate networks.
func isHostname(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(s, "."), ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}

// HostPortUser binds credentials to a remote proxy address.
type HostPortUser struct {
	HostPort
	*url.Userinfo
}

// ParseHostPortUser parses a user:password@host:port string into HostPortUser.
// The password may contain '@', the last '@' separates credentials from the address.
func ParseHostPortUser(val string) (*HostPortUser, error) {
	idx := strings.LastIndex(val, "@")
	if val == "" || idx < 0 {
		return nil, errors.New("expected user:password@host:port")
	}

	user, pass, ok := strings.Cut(val[:idx], ":")
	if !ok {
		return nil, errors.New("expected user:password@host:port")
	}
	ui := url.UserPassword(user, pass)

	host, port, err := net.SplitHostPort(val[idx+1:])
	if err != nil {
		return nil, err
	}

	hpu := &HostPortUser{
		HostPort: HostPort{
			Host: host,
			Port: port,
		},
		Userinfo: ui,
	}
	if err := hpu.Validate(); err != nil {
		return nil, err
	}

	return hpu, nil
}

func (hpu *HostPortUser) Validate() error {
	if err := hpu.HostPort.Validate(); err != nil {
		return err
	}
	return validateProxyUserinfo(hpu.Userinfo)
}

// validateProxyUserinfo checks credentials used to build a Basic Proxy-Authorization header.
// The user name must not contain ':' since the header joins user and password with it.
func validateProxyUserinfo(ui *url.Userinfo) error {
	if ui == nil || ui.Username() == "" {
		return errors.New("missing user")
	}
	if strings.Contains(ui.Username(), ":") {
		return errors.New("user must not contain ':'")
	}
	if p, ok := ui.Password(); !ok || p == "" {
		return errors.New("missing password")
	}
	return nil
}

func (hpu *HostPortUser) String() string {
	if hpu == nil {
		return ""
	}

	p, _ := hpu.Password()
	return fmt.Sprintf("%s:%s@%s:%s", hpu.Username(), p, hpu.Host, hpu.Port)
}

// RedactHostPortUser formats hpu with the password masked.
func RedactHostPortUser(hpu *HostPortUser) string {
	if hpu == nil {
		return ""
	}

	return fmt.Sprintf("%s:xxxxx@%s:%s", hpu.Username(), hpu.Host, hpu.Port)
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/url"
)

const proxyAuthorizationHeader = "Proxy-Authorization"

// ProxyAuthorizationLine returns a complete Proxy-Authorization header line with Basic credentials,
// terminated with CRLF.
func ProxyAuthorizationLine(ui *url.Userinfo) string {
	p, _ := ui.Password()
	token := base64.StdEncoding.EncodeToString([]byte(ui.Username() + ":" + p))
	return proxyAuthorizationHeader + ": Basic " + token + "\r\n"
}

// CredentialsMatcher maps upstream proxies to their credentials.
// Lookups use exact matching on the upstream identity.
// The matcher is immutable after construction and safe for concurrent use.
type CredentialsMatcher struct {
	users map[Upstream]*url.Userinfo
	lines map[Upstream]string
}

// NewCredentialsMatcher builds a matcher from user:password@host:port entries.
// Duplicate entries for the same upstream are rejected.
func NewCredentialsMatcher(credentials []*HostPortUser) (*CredentialsMatcher, error) {
	m := &CredentialsMatcher{
		users: make(map[Upstream]*url.Userinfo, len(credentials)),
		lines: make(map[Upstream]string, len(credentials)),
	}

	for i, c := range credentials {
		if c == nil {
			continue
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("credentials at pos %d: %w", i, err)
		}
		u := c.HostPort.Upstream()
		if _, ok := m.users[u]; ok {
			return nil, fmt.Errorf("credentials at pos %d: duplicate entry for %s", i, u)
		}
		m.users[u] = c.Userinfo
		m.lines[u] = ProxyAuthorizationLine(c.Userinfo)
	}

	return m, nil
}

// Match returns the credentials for u or nil if there are none.
func (m *CredentialsMatcher) Match(u Upstream) *url.Userinfo {
	if m == nil {
		return nil
	}
	return m.users[u]
}

// AuthLineFor returns the Proxy-Authorization line for u or an empty string if u has no credentials.
func (m *CredentialsMatcher) AuthLineFor(u Upstream) string {
	if m == nil {
		return ""
	}
	return m.lines[u]
}

// Upstreams returns the upstreams that have credentials configured.
func (m *CredentialsMatcher) Upstreams() []Upstream {
	if m == nil {
		return nil
	}
	res := make([]Upstream, 0, len(m.users))
	for u := range m.users {
		res = append(res, u)
	}
	return res
}

// InjectProxyAuthorization returns req with the Proxy-Authorization line for u inserted after the request line.
// Nothing is injected when u has no credentials or when req already carries a Proxy-Authorization header.
func (m *CredentialsMatcher) InjectProxyAuthorization(req []byte, u Upstream) ([]byte, bool) {
	line := m.AuthLineFor(u)
	if line == "" {
		return req, false
	}
	if bytes.Contains(req, []byte(proxyAuthorizationHeader)) {
		return req, false
	}
	return InsertAuthorizationLine(req, line)
}

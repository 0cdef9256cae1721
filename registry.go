// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"fmt"
	"net"
)

// GatewayRegistry maps upstreams to the loopback listeners serving them.
// It is built once at startup and never modified, lookups need no locking.
type GatewayRegistry struct {
	servers map[Upstream]*Server
	order   []Upstream
}

func newGatewayRegistry() *GatewayRegistry {
	return &GatewayRegistry{
		servers: make(map[Upstream]*Server),
	}
}

// add registers srv for u, it must only be called during gateway assembly.
func (r *GatewayRegistry) add(u Upstream, srv *Server) {
	if _, ok := r.servers[u]; ok {
		return
	}
	r.servers[u] = srv
	r.order = append(r.order, u)
}

func (r *GatewayRegistry) server(u Upstream) (*Server, error) {
	srv, ok := r.servers[u]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownUpstream, u)
	}
	return srv, nil
}

// PortFor returns the port of the listener serving u.
// It blocks until the listener is bound, and returns 0 with ErrUnknownUpstream for an unknown upstream.
func (r *GatewayRegistry) PortFor(u Upstream) (int, error) {
	srv, err := r.server(u)
	if err != nil {
		return 0, err
	}
	if p := srv.Port(); p != 0 {
		return p, nil
	}
	return 0, fmt.Errorf("listener for %s is not bound", u)
}

// AddrFor returns the dialable address of the listener serving u.
func (r *GatewayRegistry) AddrFor(u Upstream) (string, error) {
	srv, err := r.server(u)
	if err != nil {
		return "", err
	}
	a := srv.Addr()
	if a == nil {
		return "", fmt.Errorf("listener for %s is not bound", u)
	}
	return dialableAddr(a), nil
}

// dialableAddr replaces an unspecified listen IP with the IPv4 loopback.
func dialableAddr(a net.Addr) string {
	ta, ok := a.(*net.TCPAddr)
	if !ok || !ta.IP.IsUnspecified() {
		return a.String()
	}
	return (&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: ta.Port}).String()
}

// Upstreams returns the registered upstreams in registration order, Direct is always first.
func (r *GatewayRegistry) Upstreams() []Upstream {
	return append([]Upstream(nil), r.order...)
}

// Len returns the number of registered listeners.
func (r *GatewayRegistry) Len() int {
	return len(r.order)
}

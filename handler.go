// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"fmt"
)

// connectEstablished is the response sent to the client of a DIRECT CONNECT tunnel.
const connectEstablished = "HTTP/1.0 200 Connection established\r\n\r\n"

// directHandler connects to the origin server named by the first request of the session.
// CONNECT requests are answered locally and the buffer carrying the CONNECT head is not forwarded,
// bytes following the blank line in that buffer belong to the tunnel.
// Every buffer read after the destination is bound is forwarded unchanged.
type directHandler struct {
	s      *session
	dialer ContextDialer

	bound bool
}

func newDirectHandler(d ContextDialer) newSessionHandler {
	return func(_ context.Context, s *session) sessionHandler {
		return &directHandler{
			s:      s,
			dialer: d,
		}
	}
}

func (h *directHandler) handle(ctx context.Context, chunk []byte) ([]byte, error) {
	if h.bound {
		return chunk, nil
	}

	text := string(chunk)
	if !IsHTTPHeader(text) {
		return nil, ErrNotHTTPHeader
	}
	addr, err := requestTarget(text)
	if err != nil {
		return nil, err
	}

	if !IsConnect(text) {
		if err := h.connect(ctx, addr); err != nil {
			return nil, err
		}
		return chunk, nil
	}

	if _, err := h.s.client.Write([]byte(connectEstablished)); err != nil {
		return nil, err
	}
	if err := h.connect(ctx, addr); err != nil {
		return nil, err
	}

	if end := HeaderEnd(chunk); end >= 0 {
		return chunk[end:], nil
	}
	return nil, nil
}

func (h *directHandler) connect(ctx context.Context, addr string) error {
	c, err := h.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if !h.s.bindDestination(c) {
		return ErrSessionClosed
	}
	h.bound = true
	return nil
}

// distributeHandler routes a session to the loopback listener of the upstream chosen by the PAC script.
// The decision is made once per session on the first request.
// Every HTTP request sent to a proxy upstream gets Proxy-Authorization injected when credentials are configured.
type distributeHandler struct {
	s        *session
	resolver *TargetResolver
	registry *GatewayRegistry
	creds    *CredentialsMatcher
	dialer   ContextDialer
	metrics  *gatewayMetrics

	upstream Upstream
}

func (h *distributeHandler) handle(ctx context.Context, chunk []byte) ([]byte, error) {
	if h.upstream == "" {
		if err := h.route(ctx, chunk); err != nil {
			return nil, err
		}
	}

	if h.upstream.IsDirect() || !IsHTTPHeader(string(chunk)) {
		return chunk, nil
	}

	out, ok := h.creds.InjectProxyAuthorization(chunk, h.upstream)
	if ok {
		h.metrics.injected(h.upstream)
	}
	return out, nil
}

func (h *distributeHandler) route(ctx context.Context, chunk []byte) error {
	text := string(chunk)
	if !IsHTTPHeader(text) {
		return ErrNotHTTPHeader
	}

	u, err := h.resolver.Resolve(ctx, text)
	if err != nil {
		return err
	}
	addr, err := h.registry.AddrFor(u)
	if err != nil {
		return err
	}

	c, err := h.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s listener: %w", u, err)
	}

	h.upstream = u
	h.s.log = h.s.log.With("upstream", u.String())
	if !h.s.bindDestination(c) {
		return ErrSessionClosed
	}
	return nil
}

// upstreamHandler relays a session to a fixed remote proxy.
// The remote connection is dialed as soon as the session is accepted, client bytes wait for it.
type upstreamHandler struct{}

func newUpstreamHandler(u Upstream, d ContextDialer) newSessionHandler {
	addr := u.String()
	return func(ctx context.Context, s *session) sessionHandler {
		s.srv.wg.Add(1)
		go func() {
			defer s.srv.wg.Done()

			c, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				s.dest.abort(fmt.Errorf("dial upstream %s: %w", addr, err))
				s.fail("dial upstream", err)
				s.close()
				return
			}
			s.bindDestination(c)
		}()
		return upstreamHandler{}
	}
}

func (upstreamHandler) handle(_ context.Context, chunk []byte) ([]byte, error) {
	return chunk, nil
}

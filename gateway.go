// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/preproxy/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// DistributeListenerName is the listener label of the client facing listener.
const DistributeListenerName = "distribute"

type GatewayConfig struct {
	// Address is the listen address of the distribute listener, the one clients use as their proxy.
	Address string

	// LoopbackAddress is the listen address of the DIRECT and per upstream listeners.
	// The port should be 0, each listener gets its own port.
	LoopbackAddress string

	// ProbeTimeout bounds the TCP connect check of the upstream proxy chosen by the PAC script.
	// Zero disables the check.
	ProbeTimeout time.Duration

	// ReadLimit and WriteLimit are bandwidth limits in bytes per second of the distribute listener.
	ReadLimit  int64
	WriteLimit int64

	Session SessionConfig
	Dial    DialConfig

	PromNamespace string
	PromRegistry  prometheus.Registerer
}

func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Address:         ":65000",
		LoopbackAddress: "localhost:0",
		Session:         *DefaultSessionConfig(),
		Dial:            *DefaultDialConfig(),
		PromNamespace:   "preproxy",
	}
}

func (c *GatewayConfig) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}
	if c.LoopbackAddress == "" {
		return errors.New("loopback address is required")
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("probe timeout must not be negative, got %s", c.ProbeTimeout)
	}
	return c.Session.Validate()
}

// Gateway is the set of listeners implementing the forwarding engine:
// the distribute listener, the DIRECT listener and one listener per upstream proxy named in the PAC script.
type Gateway struct {
	config     GatewayConfig
	registry   *GatewayRegistry
	distribute *Server
	servers    []*Server
	log        log.StructuredLogger
	started    atomic.Bool
}

// NewGateway assembles the gateway for the PAC script.
// The script text is scanned for upstream proxies, pr evaluates it for every new session.
// Credentials for proxies the script does not name are ignored with a warning.
func NewGateway(cfg *GatewayConfig, script string, pr PACResolver, creds *CredentialsMatcher, log log.StructuredLogger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, startupError("validate config", err)
	}
	if pr == nil {
		return nil, startupError("validate config", errors.New("PAC resolver is required"))
	}

	m := newGatewayMetrics(cfg.PromRegistry, cfg.PromNamespace)
	d := newDialer(&cfg.Dial, newDialerMetrics(cfg.PromRegistry, cfg.PromNamespace))

	g := &Gateway{
		config:   *cfg,
		registry: newGatewayRegistry(),
		log:      log,
	}

	loopback := func(name string) ServerConfig {
		return ServerConfig{Name: name, Address: cfg.LoopbackAddress}
	}

	direct := newServer(loopback(Direct.String()), cfg.Session, newDirectHandler(d), log, m.listener(Direct.String()))
	g.add(Direct, direct)

	upstreams := EnumerateUpstreams(script)
	for _, u := range upstreams {
		srv := newServer(loopback(u.String()), cfg.Session, newUpstreamHandler(u, d), log, m.listener(u.String()))
		srv.idleTimeout = cfg.Session.UpstreamIdleTimeout
		g.add(u, srv)
	}

	known := make(map[Upstream]struct{}, len(upstreams))
	for _, u := range upstreams {
		known[u] = struct{}{}
	}
	for _, u := range creds.Upstreams() {
		if _, ok := known[u]; !ok {
			log.Warn("credentials configured for a proxy that is not used in PAC script", "upstream", u.String())
		}
	}

	resolver := newTargetResolver(pr, NewProber(cfg.ProbeTimeout, d), log, m)
	newDistribute := func(_ context.Context, s *session) sessionHandler {
		return &distributeHandler{
			s:        s,
			resolver: resolver,
			registry: g.registry,
			creds:    creds,
			dialer:   d,
			metrics:  m,
		}
	}
	g.distribute = newServer(ServerConfig{
		Name:       DistributeListenerName,
		Address:    cfg.Address,
		ReadLimit:  cfg.ReadLimit,
		WriteLimit: cfg.WriteLimit,
	}, cfg.Session, newDistribute, log, m.listener(DistributeListenerName))
	g.servers = append(g.servers, g.distribute)

	return g, nil
}

func (g *Gateway) add(u Upstream, srv *Server) {
	g.registry.add(u, srv)
	g.servers = append(g.servers, srv)
}

// Registry returns the upstream to listener mapping.
func (g *Gateway) Registry() *GatewayRegistry {
	return g.registry
}

// Addr returns the address of the distribute listener, it blocks until the listener is bound.
func (g *Gateway) Addr() net.Addr {
	return g.distribute.Addr()
}

// Ready reports whether all listeners are bound.
func (g *Gateway) Ready() bool {
	return g.started.Load()
}

// Start binds all listeners, loopback listeners first.
// If any listener fails to bind, the ones already bound are closed and a *StartupError is returned.
func (g *Gateway) Start() error {
	for _, srv := range g.servers {
		if err := srv.Listen(); err != nil {
			return multierr.Append(err, g.Close())
		}
	}
	g.started.Store(true)

	g.log.Info("gateway started",
		"address", g.distribute.Addr().String(),
		"upstreams", len(g.servers)-2,
	)

	return nil
}

// Run starts the gateway if needed and serves until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	if !g.started.Load() {
		if err := g.Start(); err != nil {
			return err
		}
	}

	var eg errgroup.Group
	for _, srv := range g.servers {
		srv := srv
		eg.Go(func() error {
			if err := srv.Serve(); !errors.Is(err, ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	<-ctx.Done()
	g.log.Info("shutting down gateway")
	cerr := g.Close()

	return multierr.Append(eg.Wait(), cerr)
}

// Close closes all listeners and tears down their sessions.
// The distribute listener is closed first so that no new sessions are routed to loopback listeners.
func (g *Gateway) Close() error {
	var err error
	for i := len(g.servers) - 1; i >= 0; i-- {
		err = multierr.Append(err, g.servers[i].Close())
	}
	return err
}

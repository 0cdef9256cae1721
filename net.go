// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/saucelabs/preproxy/ratelimit"
)

type DialConfig struct {
	// DialTimeout is the maximum amount of time a dial will wait for
	// connect to complete.
	//
	// With or without a timeout, the operating system may impose
	// its own earlier timeout. For instance, TCP timeouts are
	// often around 3 minutes.
	DialTimeout time.Duration

	// KeepAlive enables TCP keep-alive probes for an active network connection.
	// The keep-alive probes are sent with OS specific intervals.
	KeepAlive bool
}

func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		DialTimeout: 10 * time.Second,
		KeepAlive:   true,
	}
}

// ContextDialer is the dialing contract used by sessions and the liveness probe.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Dialer dials TCP connections and reports them to dialer metrics.
type Dialer struct {
	nd      net.Dialer
	metrics *dialerMetrics
}

func NewDialer(cfg *DialConfig) *Dialer {
	return newDialer(cfg, nil)
}

func newDialer(cfg *DialConfig, m *dialerMetrics) *Dialer {
	nd := net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: -1,
		Resolver: &net.Resolver{
			PreferGo: true,
		},
	}

	if cfg.KeepAlive {
		nd.Control = keepAliveControl
	}

	if m == nil {
		m = newDialerMetrics(nil, "")
	}

	return &Dialer{
		nd:      nd,
		metrics: m,
	}
}

func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	c, err := d.nd.DialContext(ctx, network, address)
	if err != nil {
		d.metrics.error(address)
		return nil, err
	}
	d.metrics.dial(address)

	return &trackedConn{
		Conn:    c,
		onClose: func() { d.metrics.close(address) },
	}, nil
}

// trackedConn calls onClose exactly once when the connection is closed.
type trackedConn struct {
	net.Conn
	once    sync.Once
	onClose func()
}

func (c *trackedConn) Close() error {
	c.once.Do(c.onClose)
	return c.Conn.Close()
}

func defaultListenConfig() *net.ListenConfig {
	return &net.ListenConfig{
		KeepAlive: -1,
		Control:   keepAliveControl,
	}
}

// keepAliveControl turns on SO_KEEPALIVE before connect or bind, probe intervals are left to the OS.
func keepAliveControl(_, _ string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) { serr = setKeepAlive(fd) }); err != nil {
		return err
	}
	if serr != nil {
		return fmt.Errorf("set SO_KEEPALIVE: %w", serr)
	}
	return nil
}

// Listen creates a listener for the provided network and address and configures OS-specific keep-alive parameters.
// See net.Listen for more information.
func Listen(network, address string) (net.Listener, error) {
	// The context cancellation does not close the listener.
	return defaultListenConfig().Listen(context.Background(), network, address)
}

// listenLimited calls Listen and wraps the listener with bandwidth limits when set.
// The readLimit caps bytes read from clients, the writeLimit caps bytes written to them.
func listenLimited(address string, readLimit, writeLimit int64) (net.Listener, error) {
	l, err := Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	if readLimit > 0 || writeLimit > 0 {
		l = ratelimit.NewListener(l, readLimit, writeLimit)
	}
	return l, nil
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ratelimit

import (
	"context"
	"net"

	"golang.org/x/time/rate"
)

// Conn is a net.Conn that throttles reads and writes after they happen.
// A throttled Read or Write returns as soon as the connection is closed.
type Conn struct {
	net.Conn
	rxLimiter *rate.Limiter
	txLimiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(c net.Conn, rx, tx *rate.Limiter) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		Conn:      c,
		rxLimiter: rx,
		txLimiter: tx,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Conn) Read(b []byte) (n int, err error) {
	n, err = c.Conn.Read(b)
	c.wait(c.rxLimiter, n)
	return
}

func (c *Conn) Write(b []byte) (n int, err error) {
	n, err = c.Conn.Write(b)
	c.wait(c.txLimiter, n)
	return
}

func (c *Conn) wait(l *rate.Limiter, n int) {
	if l == nil || n <= 0 {
		return
	}
	// The only error is the canceled context on Close, the next I/O call will report it.
	_ = l.WaitN(c.ctx, min(n, l.Burst()))
}

func (c *Conn) Close() error {
	c.cancel()
	return c.Conn.Close()
}

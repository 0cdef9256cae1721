// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"net"
	"sync"
	"time"
)

// binding is the destination slot of a session.
// It fires exactly once, either with a connection (bind) or with an error (abort).
// Waiters block on the ready channel, the lock is only held around the check-and-set.
type binding struct {
	mu    sync.Mutex
	conn  net.Conn
	err   error
	ready chan struct{}
}

func newBinding() *binding {
	return &binding{
		ready: make(chan struct{}),
	}
}

// bind sets the destination connection.
// It returns false if the binding already fired, the caller keeps ownership of c in that case.
func (b *binding) bind(c net.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fired() {
		return false
	}
	b.conn = c
	close(b.ready)
	return true
}

// abort fires the binding with err unless it already fired.
// It returns the bound connection, if any, so that the caller can close it.
func (b *binding) abort(err error) net.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.fired() {
		b.err = err
		close(b.ready)
	}
	return b.conn
}

func (b *binding) fired() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

// get returns the bound connection without waiting.
func (b *binding) get() net.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

// wait blocks until the binding fires, ctx is done or the ceiling elapses.
// A zero or negative ceiling means no limit.
func (b *binding) wait(ctx context.Context, ceiling time.Duration) (net.Conn, error) {
	select {
	case <-b.ready:
		return b.result()
	default:
	}

	var timeout <-chan time.Time
	if ceiling > 0 {
		t := time.NewTimer(ceiling)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-b.ready:
		return b.result()
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, ErrDestinationWaitTimeout
	}
}

func (b *binding) result() (net.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn, b.err
}

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
	"sync"
	"time"

	"github.com/saucelabs/preproxy/log"
)

type SessionConfig struct {
	// BufferSize is the size of the read buffer of each relay direction.
	// It also bounds the part of a request that is inspected to pick the destination.
	BufferSize int

	// DestinationWaitTimeout is the ceiling for waiting on the destination connection.
	// Reaching it indicates a bug or a stuck dial, the session is torn down.
	DestinationWaitTimeout time.Duration

	// UpstreamIdleTimeout closes upstream sessions when the remote proxy sends nothing for that long.
	// Zero means no timeout.
	UpstreamIdleTimeout time.Duration
}

func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		BufferSize:             65536,
		DestinationWaitTimeout: time.Minute,
	}
}

func (c *SessionConfig) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.DestinationWaitTimeout < 0 {
		return fmt.Errorf("destination wait timeout must not be negative, got %s", c.DestinationWaitTimeout)
	}
	if c.UpstreamIdleTimeout < 0 {
		return fmt.Errorf("upstream idle timeout must not be negative, got %s", c.UpstreamIdleTimeout)
	}
	return nil
}

// sessionHandler decides what is written to the destination for every chunk read from the client.
// It may bind the destination of the session, returned bytes are written after the destination is bound.
type sessionHandler interface {
	handle(ctx context.Context, chunk []byte) ([]byte, error)
}

// newSessionHandler creates a handler for a freshly accepted session.
// It is called from the session goroutine before the first read.
type newSessionHandler func(ctx context.Context, s *session) sessionHandler

// session owns a client connection and the destination binding.
// The session goroutine reads from the client, the relay goroutine started on bind reads from the destination.
// Whichever side fails first tears down both connections.
type session struct {
	id      uint64
	srv     *Server
	client  net.Conn
	dest    *binding
	log     log.StructuredLogger
	handler sessionHandler

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newSession(srv *Server, id uint64, c net.Conn) *session {
	ctx, cancel := context.WithCancel(srv.ctx)
	return &session{
		id:     id,
		srv:    srv,
		client: c,
		dest:   newBinding(),
		log:    srv.log.With("id", id, "client", c.RemoteAddr().String()),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *session) run() {
	defer s.close()

	m := s.srv.metrics
	m.active.Inc()
	defer m.active.Dec()

	s.log.Debug("session accepted")
	s.handler = s.srv.newHandler(s.ctx, s)

	buf := make([]byte, s.srv.session.BufferSize)
	for {
		n, err := s.client.Read(buf)
		if n > 0 {
			if ferr := s.forward(buf[:n]); ferr != nil {
				s.fail("forward to destination", ferr)
				return
			}
		}
		if err != nil {
			s.fail("read from client", err)
			return
		}
	}
}

func (s *session) forward(chunk []byte) error {
	out, err := s.handler.handle(s.ctx, chunk)
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return nil
	}

	dst, err := s.dest.wait(s.ctx, s.srv.session.DestinationWaitTimeout)
	if err != nil {
		return err
	}
	if _, err := dst.Write(out); err != nil {
		return err
	}
	s.srv.metrics.upBytes.Add(float64(len(out)))

	return nil
}

// bindDestination binds c as the destination and starts relaying it back to the client.
// If the session is already closed or bound, c is closed and false is returned.
func (s *session) bindDestination(c net.Conn) bool {
	if !s.dest.bind(c) {
		c.Close()
		return false
	}
	s.log.Debug("destination bound", "destination", c.RemoteAddr().String())

	s.srv.wg.Add(1)
	go func() {
		defer s.srv.wg.Done()
		s.relayBack(c)
	}()

	return true
}

func (s *session) relayBack(dst net.Conn) {
	defer s.close()

	idle := s.srv.idleTimeout
	buf := make([]byte, s.srv.session.BufferSize)
	for {
		if idle > 0 {
			if err := dst.SetReadDeadline(time.Now().Add(idle)); err != nil {
				s.fail("set destination deadline", err)
				return
			}
		}

		n, err := dst.Read(buf)
		if n > 0 {
			if _, werr := s.client.Write(buf[:n]); werr != nil {
				s.fail("write to client", werr)
				return
			}
			s.srv.metrics.downBytes.Add(float64(n))
		}
		if err != nil {
			s.fail("read from destination", err)
			return
		}
	}
}

// fail logs the reason of a teardown at a level matching its severity.
// Stream ends and closes caused by the other relay direction are normal.
func (s *session) fail(op string, err error) {
	switch {
	case isClosedConnError(err), errors.Is(err, ErrSessionClosed), errors.Is(err, context.Canceled):
		s.log.Debug("session done", "op", op, "reason", err)
	case errors.Is(err, ErrDestinationWaitTimeout), errors.Is(err, ErrUnknownUpstream):
		s.srv.metrics.errors.Inc()
		s.log.Error("session abandoned", "op", op, "error", err)
	default:
		s.srv.metrics.errors.Inc()
		s.log.Warn("session failed", "op", op, "error", err)
	}
}

// close tears down both connections, it is safe to call from any goroutine.
func (s *session) close() {
	s.once.Do(func() {
		s.cancel()
		if err := s.client.Close(); err != nil && !isClosedConnError(err) {
			s.log.Debug("failed to close client connection", "error", err)
		}
		if c := s.dest.abort(ErrSessionClosed); c != nil {
			if err := c.Close(); err != nil && !isClosedConnError(err) {
				s.log.Debug("failed to close destination connection", "error", err)
			}
		}
		s.srv.untrack(s)
	})
}

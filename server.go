// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saucelabs/preproxy/log"
)

type ServerConfig struct {
	// Name identifies the listener in logs and metrics.
	Name string

	// Address is the listen address, use port 0 to let the kernel pick one.
	Address string

	// ReadLimit is the bandwidth limit in bytes per second for reading from clients.
	ReadLimit int64

	// WriteLimit is the bandwidth limit in bytes per second for writing to clients.
	WriteLimit int64
}

// Server accepts client connections on a single address and runs a session for each of them.
type Server struct {
	config      ServerConfig
	session     SessionConfig
	idleTimeout time.Duration
	newHandler  newSessionHandler
	log         log.StructuredLogger
	metrics     *listenerMetrics

	listener  net.Listener
	bound     chan struct{}
	boundOnce sync.Once
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	nextID    atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

func newServer(cfg ServerConfig, scfg SessionConfig, h newSessionHandler, log log.StructuredLogger, m *listenerMetrics) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     cfg,
		session:    scfg,
		newHandler: h,
		log:        log.With("listener", cfg.Name),
		metrics:    m,
		bound:      make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[*session]struct{}),
	}
}

// Listen binds the server address.
// Port unblocks once Listen returns, whatever the outcome.
func (s *Server) Listen() error {
	defer s.markBound()

	l, err := listenLimited(s.config.Address, s.config.ReadLimit, s.config.WriteLimit)
	if err != nil {
		return startupError("listen "+s.config.Name, err)
	}
	s.listener = l
	s.log.Info("listening", "address", l.Addr().String())

	return nil
}

func (s *Server) markBound() {
	s.boundOnce.Do(func() { close(s.bound) })
}

// Addr returns the bound address, it blocks until Listen returns.
// It returns nil if Listen failed.
func (s *Server) Addr() net.Addr {
	<-s.bound
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound port, it blocks until Listen returns.
// It returns 0 if Listen failed.
func (s *Server) Port() int {
	if a, ok := s.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Serve accepts connections until Close is called, then it returns ErrServerClosed.
// Accept errors are logged and retried with a growing delay.
func (s *Server) Serve() error {
	if s.Addr() == nil {
		return errors.New("server is not listening")
	}

	var delay time.Duration
	for {
		c, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				s.log.Debug("stopped accepting connections")
				return ErrServerClosed
			}

			s.metrics.acceptErrors.Inc()
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			s.log.Error("accept failed, retrying", "error", err, "delay", delay)

			select {
			case <-time.After(delay):
			case <-s.ctx.Done():
				return ErrServerClosed
			}
			continue
		}

		delay = 0
		s.start(c)
	}
}

func (s *Server) start(c net.Conn) {
	ss := newSession(s, s.nextID.Add(1), c)
	if !s.track(ss) {
		c.Close()
		return
	}
	s.metrics.accepted.Inc()

	go func() {
		defer s.wg.Done()
		ss.run()
	}()
}

// track registers a new session, it must be paired with wg.Done.
func (s *Server) track(ss *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing.Load() {
		return false
	}
	s.sessions[ss] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(ss *session) {
	s.mu.Lock()
	delete(s.sessions, ss)
	s.mu.Unlock()
}

// Close stops accepting connections, tears down active sessions and waits for them to finish.
// A server that never listened is closed as well, Addr returns nil afterwards.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close()
	})
	return s.closeErr
}

func (s *Server) close() error {
	s.markBound()

	s.mu.Lock()
	s.closing.Store(true)
	active := make([]*session, 0, len(s.sessions))
	for ss := range s.sessions {
		active = append(active, ss)
	}
	s.mu.Unlock()

	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	for _, ss := range active {
		ss.close()
	}
	s.wg.Wait()

	return err
}

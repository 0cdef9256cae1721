// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrDestinationWaitTimeout is returned when the destination socket of a session
	// is not bound within SessionConfig.DestinationWaitTimeout.
	ErrDestinationWaitTimeout = errors.New("timed out waiting for destination")

	// ErrSessionClosed is returned when a session is torn down while waiting for its destination.
	ErrSessionClosed = errors.New("session closed")

	// ErrUnknownUpstream is returned when the registry has no listener for the requested upstream.
	ErrUnknownUpstream = errors.New("unknown upstream")

	// ErrNotHTTPHeader is returned when the first chunk read from a client is not an HTTP request head.
	ErrNotHTTPHeader = errors.New("not an HTTP request header")

	// ErrServerClosed is returned by Server.Serve after Server.Close.
	ErrServerClosed = errors.New("server closed")
)

// StartupError is returned when the gateway cannot be assembled.
// It is fatal, the process should exit.
type StartupError struct {
	Op  string
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup: %s: %v", e.Op, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

func startupError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StartupError{Op: op, Err: err}
}

// isClosedConnError reports whether err means the peer or the other relay direction ended the stream.
func isClosedConnError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

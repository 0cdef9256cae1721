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
	"net/http"
	"time"

	"github.com/saucelabs/preproxy/log"
)

type HTTPServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func DefaultHTTPServerConfig() *HTTPServerConfig {
	return &HTTPServerConfig{
		Addr:            "localhost:10000",
		ReadTimeout:     5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// HTTPServer runs an http.Handler until the context passed to Run is canceled.
type HTTPServer struct {
	config HTTPServerConfig
	log    log.StructuredLogger
	srv    *http.Server

	listener net.Listener
}

func NewHTTPServer(cfg *HTTPServerConfig, h http.Handler, log log.StructuredLogger) (*HTTPServer, error) {
	if cfg.Addr == "" {
		return nil, errors.New("address is required")
	}

	l, err := Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open listener on address %s: %w", cfg.Addr, err)
	}

	return &HTTPServer{
		config: *cfg,
		log:    log,
		srv: &http.Server{
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
		},
		listener: l,
	}, nil
}

// Addr returns the bound address.
func (hs *HTTPServer) Addr() string {
	return hs.listener.Addr().String()
}

func (hs *HTTPServer) Run(ctx context.Context) error {
	hs.log.Info("HTTP server listening", "address", hs.Addr())

	done := make(chan struct{})
	go func() {
		defer close(done)

		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), hs.config.ShutdownTimeout)
		defer cancel()
		if err := hs.srv.Shutdown(sctx); err != nil {
			hs.log.Error("failed to shutdown HTTP server", "error", err)
		}
	}()

	err := hs.srv.Serve(hs.listener)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		hs.log.Debug("HTTP server was shutdown gracefully")
		return nil
	}

	return err
}

// Close closes the listener, use it when Run is never called.
func (hs *HTTPServer) Close() error {
	if err := hs.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

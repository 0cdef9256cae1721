// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package runctx runs the long lived parts of the process until a termination signal arrives.
package runctx

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// DefaultNotifySignals specifies signals that would cause the context to be canceled.
var DefaultNotifySignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// Group is a collection of functions that run concurrently.
// The context passed to each function is canceled when one of them returns an error,
// or when any of the signals in NotifySignals is received.
type Group struct {
	NotifySignals []os.Signal
	funcs         []func(ctx context.Context) error
}

func NewGroup(fn ...func(ctx context.Context) error) *Group {
	return &Group{
		funcs: fn,
	}
}

func (g *Group) Add(fn func(ctx context.Context) error) {
	g.funcs = append(g.funcs, fn)
}

func (g *Group) Run() error {
	return g.RunContext(context.Background())
}

// RunContext runs all functions and waits for them to return.
// It returns the first error, context.Canceled caused by a signal or by canceling ctx is not an error.
func (g *Group) RunContext(ctx context.Context) error {
	sigs := g.NotifySignals
	if len(sigs) == 0 {
		sigs = DefaultNotifySignals
	}
	sctx, stop := signal.NotifyContext(ctx, sigs...)
	defer stop()

	eg, gctx := errgroup.WithContext(sctx)

	// Restore default signal handling once shutdown starts, a second signal kills the process.
	eg.Go(func() error {
		<-gctx.Done()
		stop()
		return nil
	})

	for _, fn := range g.funcs {
		fn := fn
		eg.Go(func() error { return fn(gctx) })
	}

	err := eg.Wait()
	if errors.Is(err, context.Canceled) && sctx.Err() != nil {
		return nil
	}
	return err
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// oldFileCloseDelay gives in-flight writes to a rotated file time to finish.
const oldFileCloseDelay = 5 * time.Second

// RotatableFile is an io.WriteCloser that reopens the underlying file by name
// when the process receives SIGHUP, so that external tools like logrotate can move it away.
type RotatableFile struct {
	f    atomic.Pointer[os.File]
	sig  chan os.Signal
	done chan struct{}
	once sync.Once
}

func NewRotatableFile(f *os.File) *RotatableFile {
	w := &RotatableFile{
		sig:  make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	w.f.Store(f)

	signal.Notify(w.sig, syscall.SIGHUP)
	go w.watch()

	return w
}

func (w *RotatableFile) Write(p []byte) (n int, err error) {
	return w.f.Load().Write(p)
}

// Reopen opens the file again under its original name and swaps it in.
// The previous file is closed after a short delay.
func (w *RotatableFile) Reopen() error {
	cur := w.f.Load()
	nf, err := os.OpenFile(cur.Name(), DefaultFileFlags, DefaultFileMode)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", cur.Name(), err)
	}
	old := w.f.Swap(nf)

	time.AfterFunc(oldFileCloseDelay, func() {
		if err := old.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close old log file: %v\n", err)
		}
	})

	return nil
}

func (w *RotatableFile) Close() error {
	w.once.Do(func() {
		signal.Stop(w.sig)
		close(w.done)
	})
	return w.f.Load().Close()
}

func (w *RotatableFile) watch() {
	for {
		select {
		case <-w.done:
			return
		case <-w.sig:
			if err := w.Reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to rotate log file: %v\n", err)
			}
		}
	}
}

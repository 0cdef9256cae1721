// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package slog implements log.StructuredLogger on top of the standard log/slog handlers.
package slog

import (
	"context"
	"io"
	"log/slog"
	"os"

	plog "github.com/saucelabs/preproxy/log"
)

func Default() *Logger {
	return New(plog.DefaultConfig())
}

func Debug() *Logger {
	return New(&plog.Config{Level: plog.DebugLevel, Format: plog.TextFormat})
}

var _ plog.StructuredLogger = &Logger{}

type Option func(*Logger)

type Logger struct {
	log     *slog.Logger
	file    *plog.RotatableFile
	name    string
	onError func(name string)
}

func New(cfg *plog.Config, opts ...Option) *Logger {
	var (
		w io.Writer = os.Stdout
		f *plog.RotatableFile
	)
	if cfg.File != nil {
		f = plog.NewRotatableFile(cfg.File)
		w = f
	}

	l := NewWriter(w, cfg, opts...)
	l.file = f

	return l
}

// NewWriter returns a logger writing to w, cfg.File is ignored.
func NewWriter(w io.Writer, cfg *plog.Config, opts ...Option) *Logger {
	l := &Logger{
		log: slog.New(newHandler(w, cfg)),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

func newHandler(w io.Writer, cfg *plog.Config) slog.Handler {
	hops := &slog.HandlerOptions{
		Level:       toSlogLevel(cfg.Level),
		ReplaceAttr: replaceAttr,
	}
	if cfg.Format == plog.JSONFormat {
		return slog.NewJSONHandler(w, hops)
	}
	return slog.NewTextHandler(w, hops)
}

func (l *Logger) Handler() slog.Handler {
	return l.log.Handler()
}

func (l *Logger) Error(msg string, args ...any) {
	l.errorHook()
	l.log.Error(msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.errorHook()
	l.log.ErrorContext(ctx, msg, args...)
}

func (l *Logger) errorHook() {
	if l.onError != nil {
		l.onError(l.name)
	}
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log.WarnContext(ctx, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log.InfoContext(ctx, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log.DebugContext(ctx, msg, args...)
}

func (l *Logger) With(args ...any) plog.StructuredLogger {
	c := *l
	c.log = c.log.With(args...)
	return &c
}

// Named returns a copy of the logger tagged with the component name.
// The name is also passed to the function set by WithOnError.
func (l *Logger) Named(name string) *Logger {
	c := *l
	c.name = name
	c.log = c.log.With("name", name)
	return &c
}

func (l *Logger) Reopen() error {
	if l.file == nil {
		return nil
	}
	return l.file.Reopen()
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func toSlogLevel(level plog.Level) slog.Level {
	switch level {
	case plog.ErrorLevel:
		return slog.LevelError
	case plog.WarnLevel:
		return slog.LevelWarn
	case plog.InfoLevel:
		return slog.LevelInfo
	case plog.DebugLevel:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"fmt"
	"os"
)

// Config is a configuration for the loggers.
type Config struct {
	// File is the log destination, stdout is used when nil.
	File   *os.File
	Level  Level
	Format Format
}

func DefaultConfig() *Config {
	return &Config{
		File:   nil,
		Level:  InfoLevel,
		Format: TextFormat,
	}
}

type Level int

// Levels start from 1 to avoid zero value in help printer.
const (
	ErrorLevel Level = 1 + iota
	WarnLevel
	InfoLevel
	DebugLevel
)

var levelNames = [...]string{"error", "warn", "info", "debug"}

func (l Level) String() string {
	if l < ErrorLevel || l > DebugLevel {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l-1]
}

// Levels lists all levels in the order of increasing verbosity.
func Levels() []Level {
	return []Level{ErrorLevel, WarnLevel, InfoLevel, DebugLevel}
}

type Format int

// Formats start from 1 to avoid zero value in help printer.
const (
	TextFormat Format = 1 + iota
	JSONFormat
)

func (f Format) String() string {
	if f != TextFormat && f != JSONFormat {
		return fmt.Sprintf("format(%d)", int(f))
	}
	return [2]string{"text", "json"}[f-1]
}

// Formats lists all supported output formats.
func Formats() []Format {
	return []Format{TextFormat, JSONFormat}
}

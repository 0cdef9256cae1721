// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"os"
	"path/filepath"

	"github.com/mmatczuk/anyflag"
	"github.com/saucelabs/preproxy/log"
	"github.com/spf13/pflag"
)

// logFileValue prints the log file name instead of the *os.File value.
type logFileValue struct {
	anyflag.Value[*os.File]
	f **os.File
}

func (v *logFileValue) String() string {
	if *v.f == nil {
		return ""
	}
	return (*v.f).Name()
}

func newLogFileValue(f **os.File) pflag.Value {
	return &logFileValue{*anyflag.NewValue[*os.File](*f, f, openLogFile), f}
}

// openLogFile opens path for appending, creating missing parent directories.
// An empty path means logging to stdout.
func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil //nolint:nilnil // nil file means stdout
	}
	if err := os.MkdirAll(filepath.Dir(path), log.DefaultDirMode); err != nil {
		return nil, err
	}
	return os.OpenFile(path, log.DefaultFileFlags, log.DefaultFileMode)
}

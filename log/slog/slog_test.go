// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package slog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	plog "github.com/saucelabs/preproxy/log"
)

func TestLoggerJSONKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.log")
	f, err := os.OpenFile(p, plog.DefaultFileFlags, plog.DefaultFileMode)
	if err != nil {
		t.Fatal(err)
	}

	var errNames []string
	l := New(&plog.Config{File: f, Level: plog.InfoLevel, Format: plog.JSONFormat},
		WithOnError(func(name string) { errNames = append(errNames, name) }),
	).Named("gateway")

	l.Debug("hidden")
	l.With("port", 65000).Info("listening")
	l.Error("boom")

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %s", len(lines), b)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"timestamp", "severity", "message", "name", "port"} {
		if _, ok := rec[k]; !ok {
			t.Errorf("missing key %q in %v", k, rec)
		}
	}
	if rec["message"] != "listening" {
		t.Errorf("unexpected message %v", rec["message"])
	}

	if len(errNames) != 1 || errNames[0] != "gateway" {
		t.Errorf("unexpected error hook calls: %v", errNames)
	}
}

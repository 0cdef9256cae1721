// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package eval

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const script = `function FindProxyForURL(url, host) {
  if (shExpMatch(host, "*.corp.example.com")) return "PROXY proxy.corp.example.com:3128; DIRECT";
  if (host == "blocked.example.com") return "SOCKS socks.example.com:1080";
  return "DIRECT";
}`

func writePAC(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pac.js")
	if err := os.WriteFile(p, []byte(script), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "raw",
			args: []string{"https://wiki.corp.example.com/", "http://www.example.com/", "https://blocked.example.com/"},
			want: "PROXY proxy.corp.example.com:3128; DIRECT\nDIRECT\nSOCKS socks.example.com:1080\n",
		},
		{
			name: "decision",
			args: []string{"--decision", "https://wiki.corp.example.com/", "http://www.example.com/", "https://blocked.example.com/"},
			want: "proxy.corp.example.com:3128\nDIRECT\nDIRECT\n",
		},
	}

	pac := writePAC(t)
	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := Command()
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(append([]string{"--pac", pac}, tc.args...))
			if err := cmd.Execute(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, out.String()); diff != "" {
				t.Fatalf("unexpected output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvalInvalidURL(t *testing.T) {
	cmd := Command()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--pac", writePAC(t), "not-a-url"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}

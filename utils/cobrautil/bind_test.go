// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmatczuk/anyflag"
	"github.com/spf13/cobra"
)

type testSliceStruct struct {
	Strings []string
	Ints    []int
	Bools   []bool
	IPs     []netip.Addr
}

var bindSliceConfigs = map[string]string{
	"yaml": `strings: [a, b, c]
ints: [1, 2, 3]
bools: [true, false]
ips:
  - 127.0.0.1
  - 127.0.0.2
`,
	"json": `{"strings": ["a", "b", "c"], "ints": [1, 2, 3], "bools": [true, false], "ips": ["127.0.0.1", "127.0.0.2"]}`,
	"toml": `strings = ["a", "b", "c"]
ints = [1, 2, 3]
bools = [true, false]
ips = ["127.0.0.1", "127.0.0.2"]
`,
}

func TestBindSlice(t *testing.T) {
	for ext, content := range bindSliceConfigs {
		ext, content := ext, content
		t.Run(ext, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "bind-slice."+ext)
			if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}

			cmd := &cobra.Command{}
			fs := cmd.Flags()

			var v testSliceStruct
			fs.String("config-file", p, "")
			fs.StringSliceVar(&v.Strings, "strings", nil, "")
			fs.IntSliceVar(&v.Ints, "ints", nil, "")
			fs.BoolSliceVar(&v.Bools, "bools", nil, "")
			fs.Var(anyflag.NewSliceValue[netip.Addr](nil, &v.IPs, netip.ParseAddr), "ips", "")

			if err := BindAll(cmd, "TEST", "config-file"); err != nil {
				t.Fatal(err)
			}

			expected := testSliceStruct{
				Strings: []string{"a", "b", "c"},
				Ints:    []int{1, 2, 3},
				Bools:   []bool{true, false},
				IPs: []netip.Addr{
					netip.MustParseAddr("127.0.0.1"),
					netip.MustParseAddr("127.0.0.2"),
				},
			}

			ipcmp := cmp.Comparer(func(a, b netip.Addr) bool {
				return a == b
			})
			if diff := cmp.Diff(expected, v, ipcmp); diff != "" {
				t.Fatalf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBindPrecedence(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(p, []byte("probe-timeout: 1s\naddress: :1111\nbuffer-size: 10\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PREPROXY_ADDRESS", ":2222")

	cmd := &cobra.Command{}
	fs := cmd.Flags()
	fs.String("config-file", p, "")
	address := fs.String("address", ":65000", "")
	probe := fs.Duration("probe-timeout", 0, "")
	buf := fs.Int("buffer-size", 65536, "")
	if err := fs.Parse([]string{"--buffer-size", "20"}); err != nil {
		t.Fatal(err)
	}

	if err := BindAll(cmd, "preproxy", "config-file"); err != nil {
		t.Fatal(err)
	}

	if *address != ":2222" {
		t.Errorf("address = %s, want value from env", *address)
	}
	if *probe != time.Second {
		t.Errorf("probe-timeout = %s, want value from config file", *probe)
	}
	if *buf != 20 {
		t.Errorf("buffer-size = %d, want value from flag", *buf)
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("preproxy", "log-file"); got != "PREPROXY_LOG_FILE" {
		t.Errorf("EnvName = %s", got)
	}
}

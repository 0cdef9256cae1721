// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProxies(t *testing.T) {
	tests := []struct {
		input string
		want  []Proxy
	}{
		{"", nil},
		{"DIRECT", []Proxy{{Mode: DIRECT}}},
		{"PROXY w3proxy.netscape.com:8080; PROXY mozilla.netscape.com:8081", []Proxy{
			{Mode: PROXY, Host: "w3proxy.netscape.com", Port: "8080"},
			{Mode: PROXY, Host: "mozilla.netscape.com", Port: "8081"},
		}},
		{"PROXY corp.proxy.example.com:3128;DIRECT", []Proxy{
			{Mode: PROXY, Host: "corp.proxy.example.com", Port: "3128"},
			{Mode: DIRECT},
		}},
		{"PROXY w3proxy.netscape.com:8080; SOCKS socks:1080;", []Proxy{
			{Mode: PROXY, Host: "w3proxy.netscape.com", Port: "8080"},
			{Mode: SOCKS, Host: "socks", Port: "1080"},
		}},
		{"HTTPS [::1]:443", []Proxy{
			{Mode: HTTPS, Host: "::1", Port: "443"},
		}},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.input, func(t *testing.T) {
			all, err := Proxies(tc.input).All()
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, all); diff != "" {
				t.Errorf("(-want +all)\n%s", diff)
			}

			first, err := Proxies(tc.input).First()
			if err != nil {
				t.Fatal(err)
			}
			want := Proxy{Mode: DIRECT}
			if len(tc.want) > 0 {
				want = tc.want[0]
			}
			if diff := cmp.Diff(want, first); diff != "" {
				t.Errorf("(-want +first)\n%s", diff)
			}
		})
	}
}

func TestProxiesErrors(t *testing.T) {
	for _, input := range []string{
		"PROXY",
		"PROXY host",
		"FTP host:21",
		"PROXY a:1 b:2",
	} {
		if _, err := Proxies(input).First(); err == nil {
			t.Errorf("First(%q): expected error", input)
		}
	}
}

func TestProxyString(t *testing.T) {
	tests := []struct {
		p    Proxy
		want string
	}{
		{Proxy{Mode: DIRECT}, "DIRECT"},
		{Proxy{Mode: PROXY, Host: "proxy", Port: "3128"}, "PROXY proxy:3128"},
		{Proxy{Mode: SOCKS5, Host: "::1", Port: "1080"}, "SOCKS5 [::1]:1080"},
	}
	for _, tc := range tests {
		if got := tc.p.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
	if got := Mode(42).String(); got != "Mode(42)" {
		t.Errorf("Mode(42).String() = %q", got)
	}
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		input string
		want  url.URL
	}{
		{"-", url.URL{Scheme: "file", Path: "-"}},
		{"path/to/proxy.pac", url.URL{Scheme: "file", Path: "path/to/proxy.pac"}},
		{"/etc/proxy.pac", url.URL{Scheme: "file", Path: "/etc/proxy.pac"}},
		{"file:///etc/proxy.pac", url.URL{Scheme: "file", Path: "/etc/proxy.pac"}},
		{"file:c:/proxy.pac", url.URL{Scheme: "file", Path: "c:/proxy.pac"}},
		{"file:///c|/proxy.pac", url.URL{Scheme: "file", Path: "c:/proxy.pac"}},
		{`C:\config\proxy.pac`, url.URL{Scheme: "file", Path: "C:/config/proxy.pac"}},
		{`\\host.example.com\Share\proxy.pac`, url.URL{Scheme: "file", Host: "host.example.com", Path: "/Share/proxy.pac"}},
		{"http://wpad.corp.example.com/proxy.pac", url.URL{Scheme: "http", Host: "wpad.corp.example.com", Path: "/proxy.pac"}},
		{"data:base64,Zm9v", url.URL{Scheme: "data", Opaque: "base64,Zm9v"}},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLocation(tc.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, *got, cmpopts.IgnoreFields(url.URL{}, "RawPath", "OmitHost")); diff != "" {
				t.Errorf("ParseLocation(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}
}

var base64Tests = []struct {
	decoded, encoded string
}{
	{"", ""},
	{"f", "Zg=="},
	{"fo", "Zm8="},
	{"foo", "Zm9v"},
	{"foobar", "Zm9vYmFy"},
	{"\x14\xfb\x9c\x03\xd9\x7e", "FPucA9l+"},
}

func TestReadURLData(t *testing.T) {
	for i := range base64Tests {
		tc := base64Tests[i]
		t.Run(tc.encoded, func(t *testing.T) {
			for _, opaque := range []string{"base64," + tc.encoded, "//base64," + tc.encoded, "application/x-ns-proxy-autoconfig;base64," + tc.encoded} {
				b, err := ReadURLString(context.Background(), &url.URL{Scheme: "data", Opaque: opaque}, nil)
				if err != nil {
					t.Fatal(err)
				}
				if b != tc.decoded {
					t.Fatalf("%s: expected %q, got %q", opaque, tc.decoded, b)
				}
			}
		})
	}
}

func TestReadURLFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "proxy.pac")
	if err := os.WriteFile(p, []byte(testPACScript), 0o600); err != nil {
		t.Fatal(err)
	}

	u, err := ParseLocation(p)
	if err != nil {
		t.Fatal(err)
	}
	s, err := ReadURLString(context.Background(), u, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s != testPACScript {
		t.Fatalf("unexpected content %q", s)
	}
}

func TestReadURLHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proxy.pac" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(testPACScript)) //nolint:errcheck // test
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/proxy.pac")
	s, err := ReadURLString(context.Background(), u, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s != testPACScript {
		t.Fatalf("unexpected content %q", s)
	}

	u, _ = url.Parse(srv.URL + "/missing.pac")
	if _, err := ReadURLString(context.Background(), u, nil); err == nil {
		t.Fatal("expected error for 404")
	}
}

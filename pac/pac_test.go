// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProxyResolver(t *testing.T) {
	const defaultQueryURL = "https://www.google.com/"

	tests := []struct {
		name      string
		script    string
		configure func(cfg *ProxyResolverConfig)
		queryURL  string
		hostname  string
		want      []Proxy
		err       string
		evalErr   string
	}{
		{
			name:   "direct",
			script: `function FindProxyForURL(url, host) { return "DIRECT"; }`,
			want:   []Proxy{{Mode: DIRECT}},
		},
		{
			name: "ambiguous entry point",
			script: `function FindProxyForURL(url, host) { return "DIRECT"; }
function FindProxyForURLEx(url, host) { return "DIRECT"; }`,
			err: "ambiguous entry point",
		},
		{
			name:   "no entry point",
			script: `var x = 1;`,
			err:    "missing required function FindProxyForURL or FindProxyForURLEx",
		},
		{
			name:   "missing close brace",
			script: `function FindProxyForURL(url, host) { return "DIRECT";`,
			err:    "PAC script",
		},
		{
			name:   "ex entry point",
			script: `function FindProxyForURLEx(url, host) { return "PROXY [::1]:8080"; }`,
			want:   []Proxy{{Mode: PROXY, Host: "::1", Port: "8080"}},
		},
		{
			name:   "ends with comment",
			script: "function FindProxyForURL(url, host) { return \"PROXY success:80\"; }\n// comment",
			want:   []Proxy{{Mode: PROXY, Host: "success", Port: "80"}},
		},
		{
			name:     "passthrough",
			script:   `function FindProxyForURL(url, host) { return "PROXY " + url.replace(/[^a-z.]/g, ".") + "." + host + ":80"; }`,
			queryURL: "http://query.com/path",
			want:     []Proxy{{Mode: PROXY, Host: "http...query.com.path.query.com", Port: "80"}},
		},
		{
			name:     "hostname from argument",
			script:   `function FindProxyForURL(url, host) { return "PROXY " + host + ":3128"; }`,
			queryURL: "remote.server.com:8080",
			hostname: "remote.server.com",
			want:     []Proxy{{Mode: PROXY, Host: "remote.server.com", Port: "3128"}},
		},
		{
			name: "binding from global",
			script: `var ip = myIpAddress();
function FindProxyForURL(url, host) { return "PROXY " + ip + ":80"; }`,
			configure: func(cfg *ProxyResolverConfig) {
				cfg.testingMyIPAddress = []net.IP{net.ParseIP("1.2.3.4")}
			},
			want: []Proxy{{Mode: PROXY, Host: "1.2.3.4", Port: "80"}},
		},
		{
			name: "dns fail",
			script: `function FindProxyForURL(url, host) {
  if (dnsResolve("not.found") !== null) return "DIRECT";
  if (isResolvable("not.found")) return "DIRECT";
  if (dnsResolveEx("not.found") !== "") return "DIRECT";
  if (isResolvableEx("not.found")) return "DIRECT";
  if (myIpAddress() !== "127.0.0.1") return "DIRECT";
  if (myIpAddressEx() !== "") return "DIRECT";
  return "PROXY success:80";
}`,
			configure: func(cfg *ProxyResolverConfig) {
				cfg.testingLookupIP = func(ctx context.Context, network, host string) ([]net.IP, error) {
					return nil, errors.New("test")
				}
				cfg.testingMyIPAddress = []net.IP{}
				cfg.testingMyIPAddressEx = []net.IP{}
			},
			want: []Proxy{{Mode: PROXY, Host: "success", Port: "80"}},
		},
		{
			name: "simple",
			script: `function FindProxyForURL(url, host) {
  if (isPlainHostName(host)) return "DIRECT";
  if (isInNet(host, "10.0.0.0", "255.0.0.0")) return "PROXY b:80";
  if (shExpMatch(host, "*.baz.com")) return "PROXY c:100";
  if (isInNet(myIpAddress(), "172.16.0.0", "255.248.0.0")) return "PROXY a:80";
  return "DIRECT";
}`,
			configure: func(cfg *ProxyResolverConfig) {
				cfg.testingMyIPAddress = []net.IP{net.ParseIP("172.16.3.4")}
				cfg.testingLookupIP = func(ctx context.Context, network, host string) ([]net.IP, error) {
					return nil, errors.New("test")
				}
			},
			want: []Proxy{{Mode: PROXY, Host: "a", Port: "80"}},
		},
		{
			name:   "return empty string",
			script: `function FindProxyForURL(url, host) { return ""; }`,
		},
		{
			name:    "return integer",
			script:  `function FindProxyForURL(url, host) { return 1; }`,
			evalErr: "unexpected return type",
		},
		{
			name:    "return null",
			script:  `function FindProxyForURL(url, host) { return null; }`,
			evalErr: "unexpected return type",
		},
		{
			name:    "return undefined",
			script:  `function FindProxyForURL(url, host) {}`,
			evalErr: "unexpected return type",
		},
		{
			name:    "return unicode",
			script:  `function FindProxyForURL(url, host) { return "PROXY šč:80"; }`,
			evalErr: "non-ASCII characters in the return value",
		},
		{
			name:    "unhandled exception",
			script:  `function FindProxyForURL(url, host) { return undefined_variable; }`,
			evalErr: "undefined_variable is not defined",
		},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			cfg := &ProxyResolverConfig{
				Script: tc.script,
			}
			if tc.configure != nil {
				tc.configure(cfg)
			}

			pr, err := NewProxyResolver(cfg, nil)
			if tc.err != "" {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error to contain %q, got %q", tc.err, err.Error())
				}
				return
			} else if err != nil {
				t.Fatal(err)
			}

			q := defaultQueryURL
			if tc.queryURL != "" {
				q = tc.queryURL
			}
			p, err := pr.FindProxyForURL(q, tc.hostname)
			if tc.evalErr != "" {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.evalErr) {
					t.Fatalf("expected error to contain %q, got %q", tc.evalErr, err.Error())
				}
				return
			} else if err != nil {
				t.Fatal(err)
			}

			got, err := Proxies(p).All()
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected proxy list (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHelperFunctions(t *testing.T) {
	pr, err := NewProxyResolver(&ProxyResolverConfig{
		Script: `function FindProxyForURL(url, host) { return "DIRECT"; }`,
		testingLookupIP: func(ctx context.Context, network, host string) ([]net.IP, error) {
			switch host {
			case "intranet.corp":
				return []net.IP{net.ParseIP("10.1.2.3")}, nil
			case "dual.example.com":
				return []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("192.0.2.1")}, nil
			default:
				return nil, errors.New("not found")
			}
		},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []string{
		`dnsDomainIs("www.netscape.com", ".netscape.com")`,
		`!dnsDomainIs("www", ".netscape.com")`,
		`!dnsDomainIs("www.mcom.com", ".netscape.com")`,
		`dnsDomainLevels("www") == 0`,
		`dnsDomainLevels("www.netscape.com") == 2`,
		`isPlainHostName("www")`,
		`!isPlainHostName("www.netscape.com")`,
		`!isPlainHostName("127.0.0.1:8080")`,
		`localHostOrDomainIs("www.netscape.com", "www.netscape.com")`,
		`localHostOrDomainIs("www", "www.netscape.com")`,
		`!localHostOrDomainIs("www.mcom.com", "www.netscape.com")`,
		`!localHostOrDomainIs("home.netscape.com", "www.netscape.com")`,
		`shExpMatch("http://home.netscape.com/people/ari/index.html", "*/ari/*")`,
		`!shExpMatch("http://home.netscape.com/people/montulli/index.html", "*/ari/*")`,
		`shExpMatch("proxy.corp.example.com", "proxy.*.example.com")`,
		`!shExpMatch("proxyXcorp", "proxy.corp")`,
		`shExpMatch("a1", "a?")`,
		`isValidIpAddress("192.168.0.1")`,
		`!isValidIpAddress("192.168.0.256")`,
		`convert_addr("104.16.41.2") == 1745889538`,
		`isInNet("198.95.249.79", "198.95.249.79", "255.255.255.255")`,
		`isInNet("198.95.6.8", "198.95.0.0", "255.255.0.0")`,
		`!isInNet("198.96.6.8", "198.95.0.0", "255.255.0.0")`,
		`isInNet("intranet.corp", "10.0.0.0", "255.0.0.0")`,
		`!isInNet("unknown.corp", "10.0.0.0", "255.0.0.0")`,
		`isResolvable("intranet.corp")`,
		`dnsResolve("intranet.corp") == "10.1.2.3"`,
		`dnsResolve("dual.example.com") == "2001:db8::1" || dnsResolve("dual.example.com") == "192.0.2.1"`,
		`dnsResolveEx("dual.example.com") == "2001:db8::1;192.0.2.1"`,
		`isInNetEx("2001:db8::1", "2001:db8::/32")`,
		`!isInNetEx("192.0.2.1", "2001:db8::/32")`,
		`isInNetEx(null, "2001:db8::/32") === null`,
		`sortIpAddressList("10.2.3.9;2001:4898:28:3:201:2ff:feea:fc14;::1;127.0.0.1;::9") == "::1;::9;2001:4898:28:3:201:2ff:feea:fc14;10.2.3.9;127.0.0.1"`,
		`sortIpAddressList("not an ip") === false`,
		`getClientVersion() == "1.0"`,
		`weekdayRange("SUN", "SAT")`,
		`weekdayRange("SAT", "FRI", "GMT")`,
		`!weekdayRange("FOO")`,
		`dateRange("JAN", "DEC")`,
		`dateRange(1, 31)`,
		`!dateRange(1995)`,
		`dateRange(1995, 2999)`,
		`!dateRange("FOO", "BAR")`,
		`timeRange(0, 0, 0, 23, 59, 59) || timeRange(23, 59, 59, 0, 0, 1)`,
		`timeRange(0, 0, 23, 59, "GMT") || timeRange(23, 59, 0, 1, "GMT")`,
		`!timeRange()`,
	}

	for _, expr := range tests {
		v, err := pr.TestingEval(expr)
		if err != nil {
			t.Errorf("%s: %v", expr, err)
			continue
		}
		if !v.ToBoolean() {
			t.Errorf("%s: expected true", expr)
		}
	}
}

func TestSupportedFunctions(t *testing.T) {
	got := SupportedFunctions()
	for _, want := range []string{"dnsDomainIs", "shExpMatch", "isInNet", "dnsResolve", "myIpAddressEx", "timeRange", "alert"} {
		found := false
		for _, fn := range got {
			if fn == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s not in %v", want, got)
		}
	}
	for _, fn := range got {
		if strings.HasPrefix(fn, "pac") {
			t.Errorf("internal helper %s is listed", fn)
		}
	}
}

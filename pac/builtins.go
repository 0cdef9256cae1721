// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/dop251/goja"
)

//go:embed ascii_pac_utils.js
var asciiPacUtilsScript string

// builtin is a PAC helper implemented in Go.
type builtin struct {
	name string
	fn   func(pr *ProxyResolver, call goja.FunctionCall) goja.Value
}

// builtins lists the helpers that need DNS or interface access.
// Pure string and date helpers live in ascii_pac_utils.js.
var builtins = []builtin{
	{"dnsResolve", (*ProxyResolver).dnsResolve},
	{"myIpAddress", (*ProxyResolver).myIPAddress},
	{"isResolvableEx", (*ProxyResolver).isResolvableEx},
	{"isInNetEx", (*ProxyResolver).isInNetEx},
	{"dnsResolveEx", (*ProxyResolver).dnsResolveEx},
	{"myIpAddressEx", (*ProxyResolver).myIPAddressEx},
	{"sortIpAddressList", (*ProxyResolver).sortIPAddressList},
	{"getClientVersion", (*ProxyResolver).getClientVersion},
	{"alert", (*ProxyResolver).alert},
}

func (pr *ProxyResolver) lookupIP(network, host string) ([]net.IP, error) {
	ctx := context.Background()
	if pr.config.DNSTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pr.config.DNSTimeout)
		defer cancel()
	}

	lookup := pr.config.testingLookupIP
	if lookup == nil {
		lookup = pr.resolver.LookupIP
	}
	ips, err := lookup(ctx, network, host)
	if err == nil && len(ips) == 0 {
		err = errors.New("no addresses")
	}
	return ips, err
}

func (pr *ProxyResolver) localIPs(ipv6 bool) []net.IP {
	if ipv6 && pr.config.testingMyIPAddressEx != nil {
		return pr.config.testingMyIPAddressEx
	}
	if !ipv6 && pr.config.testingMyIPAddress != nil {
		return pr.config.testingMyIPAddress
	}
	return interfaceIPs(ipv6)
}

// interfaceIPs returns global unicast addresses of interfaces that are up.
func interfaceIPs(ipv6 bool) []net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var ips []net.IP
	for i := range ifaces {
		if ifaces[i].Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			n, ok := a.(*net.IPNet)
			if !ok || !n.IP.IsGlobalUnicast() {
				continue
			}
			if ipv6 || n.IP.To4() != nil {
				ips = append(ips, n.IP)
			}
		}
	}
	return ips
}

// dnsResolve(host) returns the first IPv4 address of host or null.
func (pr *ProxyResolver) dnsResolve(call goja.FunctionCall) goja.Value {
	host, ok := asString(call.Argument(0))
	if !ok {
		return goja.Undefined()
	}
	ips, err := pr.lookupIP("ip4", host)
	if err != nil {
		return goja.Null()
	}
	return pr.vm.ToValue(ips[0].String())
}

// myIpAddress() returns the first IPv4 address of the machine, 127.0.0.1 if there is none.
func (pr *ProxyResolver) myIPAddress(_ goja.FunctionCall) goja.Value {
	ips := pr.localIPs(false)
	if len(ips) == 0 {
		return pr.vm.ToValue("127.0.0.1")
	}
	return pr.vm.ToValue(ips[0].String())
}

// The following helpers are the Microsoft IPv6 extensions,
// see https://learn.microsoft.com/en-us/windows/win32/winhttp/ipv6-aware-proxy-helper-api-definitions.

func (pr *ProxyResolver) isResolvableEx(call goja.FunctionCall) goja.Value {
	return pr.vm.ToValue(pr.dnsResolveEx(call).String() != "")
}

func (pr *ProxyResolver) isInNetEx(call goja.FunctionCall) goja.Value {
	host, cidr := call.Argument(0), call.Argument(1)
	if isNullOrUndefined(host) || isNullOrUndefined(cidr) {
		return goja.Null()
	}
	h, ok1 := asString(host)
	c, ok2 := asString(cidr)
	if !ok1 || !ok2 {
		return pr.vm.ToValue(false)
	}

	ip := net.ParseIP(h)
	_, n, err := net.ParseCIDR(c)
	if ip == nil || err != nil {
		return pr.vm.ToValue(false)
	}
	return pr.vm.ToValue(n.Contains(ip))
}

func (pr *ProxyResolver) dnsResolveEx(call goja.FunctionCall) goja.Value {
	if isNullOrUndefined(call.Argument(0)) {
		return goja.Null()
	}
	host, ok := asString(call.Argument(0))
	if !ok {
		return pr.vm.ToValue(false)
	}
	ips, err := pr.lookupIP("ip", host)
	if err != nil {
		return pr.vm.ToValue("")
	}
	return pr.vm.ToValue(joinIPs(ips))
}

func (pr *ProxyResolver) myIPAddressEx(_ goja.FunctionCall) goja.Value {
	return pr.vm.ToValue(joinIPs(pr.localIPs(true)))
}

// sortIpAddressList sorts a semicolon separated list, IPv6 addresses go first.
func (pr *ProxyResolver) sortIPAddressList(call goja.FunctionCall) goja.Value {
	if isNullOrUndefined(call.Argument(0)) {
		return goja.Null()
	}
	s, ok := asString(call.Argument(0))
	if !ok {
		return pr.vm.ToValue(false)
	}

	type entry struct {
		ip   net.IP
		orig string
	}
	var list []entry
	for _, v := range strings.Split(s, ";") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		ip := net.ParseIP(v)
		if ip == nil {
			return pr.vm.ToValue(false)
		}
		list = append(list, entry{ip, v})
	}
	if len(list) == 0 {
		return pr.vm.ToValue(false)
	}

	sort.SliceStable(list, func(i, j int) bool {
		a4, b4 := list[i].ip.To4() != nil, list[j].ip.To4() != nil
		if a4 != b4 {
			return !a4
		}
		return bytes.Compare(list[i].ip.To16(), list[j].ip.To16()) < 0
	})

	out := make([]string, len(list))
	for i := range list {
		out[i] = list[i].orig
	}
	return pr.vm.ToValue(strings.Join(out, ";"))
}

func (pr *ProxyResolver) getClientVersion(_ goja.FunctionCall) goja.Value {
	return pr.vm.ToValue("1.0")
}

func (pr *ProxyResolver) alert(call goja.FunctionCall) goja.Value {
	if pr.config.Logger != nil {
		pr.config.Logger.Info("PAC alert", "message", call.Argument(0).String())
	}
	return goja.Undefined()
}

func isNullOrUndefined(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func asString(v goja.Value) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.Export().(string)
	return s, ok
}

func joinIPs(ips []net.IP) string {
	s := make([]string, len(ips))
	for i, ip := range ips {
		s[i] = ip.String()
	}
	return strings.Join(s, ";")
}

func registerBuiltins(pr *ProxyResolver) error {
	for _, b := range builtins {
		b := b
		fn := func(call goja.FunctionCall) goja.Value {
			return b.fn(pr, call)
		}
		if err := pr.vm.Set(b.name, fn); err != nil {
			return fmt.Errorf("set helper function %s: %w", b.name, err)
		}
	}
	return nil
}

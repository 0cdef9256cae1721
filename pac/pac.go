// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/dop251/goja"
	"github.com/saucelabs/preproxy/log"
	"golang.org/x/exp/utf8string"
)

type ProxyResolverConfig struct {
	Script string

	// Logger receives alert() calls from the script, nil discards them.
	Logger log.StructuredLogger

	// DNSTimeout bounds every DNS lookup made by the script, zero means no limit.
	DNSTimeout time.Duration

	testingLookupIP      func(ctx context.Context, network, host string) ([]net.IP, error)
	testingMyIPAddress   []net.IP
	testingMyIPAddressEx []net.IP
}

func (c *ProxyResolverConfig) Validate() error {
	if c.Script == "" {
		return errors.New("PAC script is empty")
	}
	if c.DNSTimeout < 0 {
		return fmt.Errorf("DNS timeout must not be negative, got %s", c.DNSTimeout)
	}
	return nil
}

// ProxyResolver evaluates a PAC script in a Goja VM.
// It supports both FindProxyForURL and FindProxyForURLEx entry points.
// It is not safe for concurrent use, see ProxyResolverPool.
type ProxyResolver struct {
	config   ProxyResolverConfig
	vm       *goja.Runtime
	fn       goja.Callable
	resolver *net.Resolver
}

func NewProxyResolver(cfg *ProxyResolverConfig, r *net.Resolver) (*ProxyResolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = net.DefaultResolver
	}

	pr := &ProxyResolver{
		config:   *cfg,
		vm:       goja.New(),
		resolver: r,
	}
	if err := registerBuiltins(pr); err != nil {
		return nil, err
	}
	if _, err := pr.vm.RunString(asciiPacUtilsScript); err != nil {
		return nil, fmt.Errorf("PAC helpers: %w", err)
	}
	if _, err := pr.vm.RunString(cfg.Script); err != nil {
		return nil, fmt.Errorf("PAC script: %w", err)
	}

	fnx, _ := goja.AssertFunction(pr.vm.Get("FindProxyForURLEx"))
	fn, _ := goja.AssertFunction(pr.vm.Get("FindProxyForURL"))
	switch {
	case fnx != nil && fn != nil:
		return nil, errors.New("PAC script: ambiguous entry point, both FindProxyForURL and FindProxyForURLEx are defined")
	case fnx != nil:
		pr.fn = fnx
	case fn != nil:
		pr.fn = fn
	default:
		return nil, errors.New("PAC script: missing required function FindProxyForURL or FindProxyForURLEx")
	}

	return pr, nil
}

// FindProxyForURL calls the script entry point.
// If hostname is empty it is taken from rawURL.
// The result must be an ASCII string.
func (pr *ProxyResolver) FindProxyForURL(rawURL, hostname string) (string, error) {
	if hostname == "" {
		hostname = urlHostname(rawURL)
	}

	v, err := pr.fn(goja.Undefined(), pr.vm.ToValue(rawURL), pr.vm.ToValue(hostname))
	if err != nil {
		return "", fmt.Errorf("PAC script: %w", err)
	}

	s, ok := asString(v)
	if !ok {
		return "", fmt.Errorf("PAC script: unexpected return type %s", v.ExportType())
	}
	if !utf8string.NewString(s).IsASCII() {
		return "", fmt.Errorf("PAC script: non-ASCII characters in the return value %q", s)
	}

	return s, nil
}

func urlHostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

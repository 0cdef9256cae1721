// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"net"
	"sync"
)

// ProxyResolverPool is a concurrency safe resolver backed by a pool of ProxyResolver VMs.
type ProxyResolverPool struct {
	pool sync.Pool
}

// NewProxyResolverPool compiles the script once to report errors early.
// The compiled resolver is the first one handed out by the pool.
func NewProxyResolverPool(cfg *ProxyResolverConfig, r *net.Resolver) (*ProxyResolverPool, error) {
	first, err := NewProxyResolver(cfg, r)
	if err != nil {
		return nil, err
	}

	p := &ProxyResolverPool{}
	p.pool.New = func() any {
		pr, err := NewProxyResolver(cfg, r)
		if err != nil {
			// The same config compiled once already.
			panic(err)
		}
		return pr
	}
	p.pool.Put(first)

	return p, nil
}

func (p *ProxyResolverPool) FindProxyForURL(rawURL, hostname string) (string, error) {
	pr := p.pool.Get().(*ProxyResolver) //nolint:forcetypeassert // pool only holds resolvers
	defer p.pool.Put(pr)
	return pr.FindProxyForURL(rawURL, hostname)
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"fmt"

	"github.com/saucelabs/preproxy/log"
)

// TargetResolver picks the upstream for a request head.
// It evaluates the PAC script and, when ProbeTimeout is set, checks that the chosen proxy accepts connections.
// An unreachable proxy is replaced with Direct.
type TargetResolver struct {
	pac     PACResolver
	probe   *Prober
	log     log.StructuredLogger
	metrics *gatewayMetrics
}

func NewTargetResolver(pr PACResolver, probe *Prober, log log.StructuredLogger) *TargetResolver {
	return newTargetResolver(pr, probe, log, nil)
}

func newTargetResolver(pr PACResolver, probe *Prober, log log.StructuredLogger, m *gatewayMetrics) *TargetResolver {
	if m == nil {
		m = newGatewayMetrics(nil, "")
	}
	return &TargetResolver{
		pac:     pr,
		probe:   probe,
		log:     log,
		metrics: m,
	}
}

// Resolve returns the upstream for the request head text.
// Errors come from PAC evaluation only, probe failures fall back to Direct.
func (r *TargetResolver) Resolve(ctx context.Context, text string) (Upstream, error) {
	url := ExtractURL(text)
	host, ok := ExtractHost(text)
	if !ok {
		r.log.Warn("request has no Host header", "host", host)
	}

	res, err := r.pac.FindProxyForURL(url, host)
	if err != nil {
		return "", fmt.Errorf("evaluate PAC for %s: %w", host, err)
	}

	u := ParseDecision(res)
	if !u.IsDirect() && !r.probe.Alive(ctx, u) {
		r.log.Warn("upstream proxy is not reachable, falling back to DIRECT", "upstream", u, "host", host)
		r.metrics.fallback()
		u = Direct
	}
	r.metrics.resolve(u)

	return u, nil
}

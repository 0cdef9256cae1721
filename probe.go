// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"time"
)

// Prober checks upstream proxy liveness with a plain TCP connect.
// A nil Prober or a zero timeout reports every upstream as alive.
type Prober struct {
	timeout time.Duration
	dialer  ContextDialer
}

func NewProber(timeout time.Duration, d ContextDialer) *Prober {
	return &Prober{
		timeout: timeout,
		dialer:  d,
	}
}

// Alive reports whether u accepts a TCP connection within the probe timeout.
// The probe connection is closed immediately.
func (p *Prober) Alive(ctx context.Context, u Upstream) bool {
	if p == nil || p.timeout <= 0 || u.IsDirect() {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	c, err := p.dialer.DialContext(ctx, "tcp", u.String())
	if err != nil {
		return false
	}
	c.Close()

	return true
}

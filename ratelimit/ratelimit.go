// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ratelimit

import (
	"golang.org/x/time/rate"
)

// minBurstSize must be bigger than the biggest single read or write.
const minBurstSize = 4 * 1024 * 1024

func newRateLimiter(bandwidth int64) *rate.Limiter {
	// Scale the burst with bandwidth above 2GBit/s (256MiB/s).
	burst := bandwidth / 64
	if burst < minBurstSize {
		burst = minBurstSize
	}
	return rate.NewLimiter(rate.Limit(bandwidth), int(burst))
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"net/url"
)

// RedactURL hides passwords and inline data URL payloads, PAC scripts passed as data URLs may embed credentials.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.Scheme == "data" {
		return "data:xxxxx"
	}
	return u.Redacted()
}

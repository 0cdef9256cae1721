// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package preproxy provides a local forwarding gateway for HTTP and HTTPS traffic.
//
// Clients are configured with a single proxy, the distribute listener.
// For every connection the gateway evaluates a PAC script against the first request,
// and hands the connection over to a loopback listener bound to the chosen upstream.
// Upstream listeners forward bytes to a remote proxy and inject a Proxy-Authorization header
// when credentials are configured for that proxy.
// The DIRECT listener connects to the origin server named in the request.
//
// Relaying is byte oriented, requests are inspected as text only to pick a destination.
package preproxy

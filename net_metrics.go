// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"net"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type dialerMetrics struct {
	errors *prometheus.CounterVec
	dialed *prometheus.CounterVec
	active *prometheus.GaugeVec
}

func newDialerMetrics(r prometheus.Registerer, namespace string) *dialerMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)
	l := []string{"host"}

	return &dialerMetrics{
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_errors_total",
			Namespace: namespace,
			Help:      "Number of errors dialing connections",
		}, l),
		dialed: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_cx_total",
			Namespace: namespace,
			Help:      "Number of dialed connections",
		}, l),
		active: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "dialer_cx_active",
			Namespace: namespace,
			Help:      "Number of active dialed connections",
		}, l),
	}
}

func (m *dialerMetrics) error(addr string) {
	m.errors.WithLabelValues(addr2Host(addr)).Inc()
}

func (m *dialerMetrics) dial(addr string) {
	host := addr2Host(addr)
	m.dialed.WithLabelValues(host).Inc()
	m.active.WithLabelValues(host).Inc()
}

func (m *dialerMetrics) close(addr string) {
	m.active.WithLabelValues(addr2Host(addr)).Dec()
}

// addr2Host returns the host label for a dialed address.
// All loopback variants are folded into "localhost" as the gateway dials its own listeners a lot.
func addr2Host(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "unknown"
	}

	commonLocalhostNames := []string{
		"localhost",
		"127.0.0.1",
		"::1",
		"::",
	}
	if slices.Contains(commonLocalhostNames, host) {
		return "localhost"
	}

	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return "localhost"
	}

	return host
}

type gatewayMetrics struct {
	sessions      *prometheus.CounterVec
	active        *prometheus.GaugeVec
	sessionErrors *prometheus.CounterVec
	relayedBytes  *prometheus.CounterVec
	acceptErrors  *prometheus.CounterVec
	resolved      *prometheus.CounterVec
	probeFallback prometheus.Counter
	authInjected  *prometheus.CounterVec
}

func newGatewayMetrics(r prometheus.Registerer, namespace string) *gatewayMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)
	l := []string{"listener"}

	return &gatewayMetrics{
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "sessions_total",
			Namespace: namespace,
			Help:      "Number of accepted client sessions",
		}, l),
		active: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "sessions_active",
			Namespace: namespace,
			Help:      "Number of sessions currently relaying",
		}, l),
		sessionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "session_errors_total",
			Namespace: namespace,
			Help:      "Number of sessions torn down because of an error",
		}, l),
		relayedBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "relayed_bytes_total",
			Namespace: namespace,
			Help:      "Number of bytes relayed, direction is upstream (client to destination) or downstream",
		}, []string{"listener", "direction"}),
		acceptErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "listener_accept_errors_total",
			Namespace: namespace,
			Help:      "Number of listener errors when accepting connections",
		}, l),
		resolved: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "resolve_total",
			Namespace: namespace,
			Help:      "Number of sessions routed to an upstream",
		}, []string{"upstream"}),
		probeFallback: f.NewCounter(prometheus.CounterOpts{
			Name:      "probe_fallback_total",
			Namespace: namespace,
			Help:      "Number of times an unreachable upstream proxy was replaced with DIRECT",
		}),
		authInjected: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "auth_injected_total",
			Namespace: namespace,
			Help:      "Number of requests with injected Proxy-Authorization header",
		}, []string{"upstream"}),
	}
}

// listenerMetrics are gateway metrics curried with a listener name.
type listenerMetrics struct {
	accepted     prometheus.Counter
	active       prometheus.Gauge
	errors       prometheus.Counter
	acceptErrors prometheus.Counter
	upBytes      prometheus.Counter
	downBytes    prometheus.Counter
}

func (m *gatewayMetrics) listener(name string) *listenerMetrics {
	return &listenerMetrics{
		accepted:     m.sessions.WithLabelValues(name),
		active:       m.active.WithLabelValues(name),
		errors:       m.sessionErrors.WithLabelValues(name),
		acceptErrors: m.acceptErrors.WithLabelValues(name),
		upBytes:      m.relayedBytes.WithLabelValues(name, "upstream"),
		downBytes:    m.relayedBytes.WithLabelValues(name, "downstream"),
	}
}

func (m *gatewayMetrics) resolve(u Upstream) {
	m.resolved.WithLabelValues(u.String()).Inc()
}

func (m *gatewayMetrics) fallback() {
	m.probeFallback.Inc()
}

func (m *gatewayMetrics) injected(u Upstream) {
	m.authInjected.WithLabelValues(u.String()).Inc()
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saucelabs/preproxy/internal/version"
)

// APIHandler serves API endpoints.
// It provides health and readiness endpoints, prometheus metrics, the PAC script, the upstream listeners,
// and pprof debug endpoints.
type APIHandler struct {
	mux     *http.ServeMux
	gateway *Gateway
	config  string
	script  string
}

func NewAPIHandler(r prometheus.Gatherer, g *Gateway, config, pac string) *APIHandler {
	m := http.NewServeMux()
	a := &APIHandler{
		mux:     m,
		gateway: g,
		config:  config,
		script:  pac,
	}
	m.Handle("/metrics", promhttp.HandlerFor(r, promhttp.HandlerOpts{}))
	m.HandleFunc("/healthz", a.healthz)
	m.HandleFunc("/readyz", a.readyz)
	m.HandleFunc("/configz", a.configz)
	m.HandleFunc("/pac", a.pac)
	m.HandleFunc("/upstreams", a.upstreams)
	m.HandleFunc("/version", a.version)

	m.HandleFunc("/debug/pprof/", pprof.Index)
	m.HandleFunc("/debug/pprof/profile", pprof.Profile)
	m.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	m.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return a
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(s)) //nolint:errcheck // best effort
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func (h *APIHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (h *APIHandler) readyz(w http.ResponseWriter, _ *http.Request) {
	if h.gateway.Ready() {
		writeText(w, http.StatusOK, "OK")
	} else {
		writeText(w, http.StatusServiceUnavailable, "Service Unavailable")
	}
}

func (h *APIHandler) configz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, h.config)
}

func (h *APIHandler) pac(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-ns-proxy-autoconfig")
	w.Write([]byte(h.script)) //nolint:errcheck // best effort
}

type upstreamListener struct {
	Upstream string `json:"upstream"`
	Port     int    `json:"port"`
}

func (h *APIHandler) upstreams(w http.ResponseWriter, _ *http.Request) {
	if !h.gateway.Ready() {
		writeText(w, http.StatusServiceUnavailable, "Service Unavailable")
		return
	}

	r := h.gateway.Registry()
	res := make([]upstreamListener, 0, r.Len())
	for _, u := range r.Upstreams() {
		p, err := r.PortFor(u)
		if err != nil {
			continue
		}
		res = append(res, upstreamListener{Upstream: u.String(), Port: p})
	}
	writeJSON(w, res)
}

func (h *APIHandler) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, version.Get())
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

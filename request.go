// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// UnknownHost is reported by ExtractHost when the request has no Host header.
const UnknownHost = "unknown.host.com"

var (
	crlf         = []byte("\r\n")
	headerEnd    = []byte("\r\n\r\n")
	hostLineExpr = regexp.MustCompile(`(?m)^Host:[ \t]+([^\r\n]+)`)
)

// httpMethods lists the request line prefixes accepted as the start of an HTTP request.
var httpMethods = []string{ //nolint:gochecknoglobals // constant
	"GET ",
	"POST ",
	"PUT ",
	"HEAD ",
	"DELETE ",
	"CONNECT ",
	"OPTIONS ",
	"TRACE ",
	"PATCH ",
}

// IsHTTPHeader reports whether text looks like the head of an HTTP request.
// The request line must start with a known method and the text must contain a Host header.
func IsHTTPHeader(text string) bool {
	if !strings.Contains(text, "Host: ") {
		return false
	}
	for _, m := range httpMethods {
		if strings.HasPrefix(text, m) {
			return true
		}
	}
	return false
}

// IsConnect reports whether text starts with a CONNECT request line.
func IsConnect(text string) bool {
	return strings.HasPrefix(text, "CONNECT ")
}

func requestLine(text string) string {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		return text[:i]
	}
	return text
}

// ExtractURL returns the request target from the request line if it carries a scheme or a port,
// i.e. the second token contains a colon. Otherwise it returns an empty string.
func ExtractURL(text string) string {
	parts := strings.Split(requestLine(text), " ")
	if len(parts) < 2 {
		return ""
	}
	if !strings.Contains(parts[1], ":") {
		return ""
	}
	return parts[1]
}

// ExtractHost returns the value of the Host header without the port.
// If the header is missing it returns UnknownHost and false.
func ExtractHost(text string) (string, bool) {
	m := hostLineExpr.FindStringSubmatch(text)
	if m == nil {
		return UnknownHost, false
	}
	v := strings.TrimSpace(m[1])
	if h, _, err := net.SplitHostPort(v); err == nil {
		return h, true
	}
	return strings.Trim(v, "[]"), true
}

// FirstLineBreakOffset returns the offset just past the first CRLF in b, or -1 if there is none.
func FirstLineBreakOffset(b []byte) int {
	i := bytes.Index(b, crlf)
	if i < 0 {
		return -1
	}
	return i + len(crlf)
}

// HeaderEnd returns the offset just past the blank line terminating the request head, or -1.
func HeaderEnd(b []byte) int {
	i := bytes.Index(b, headerEnd)
	if i < 0 {
		return -1
	}
	return i + len(headerEnd)
}

// InsertAuthorizationLine returns a new buffer with line spliced in right after the request line.
// The line must include its own CRLF terminator.
// If b has no line break, b is returned unchanged and ok is false.
func InsertAuthorizationLine(b []byte, line string) (out []byte, ok bool) {
	off := FirstLineBreakOffset(b)
	if off < 0 {
		return b, false
	}

	out = make([]byte, 0, len(b)+len(line))
	out = append(out, b[:off]...)
	out = append(out, line...)
	out = append(out, b[off:]...)
	return out, true
}

var errEmptyTarget = errors.New("empty target")

// TargetHostPort converts a request target into a host:port suitable for net.Dial.
// The target may be an absolute URL, an authority with or without a port, or a bare host.
// Scheme, userinfo and path are dropped, defaultPort is used when the target has no port.
func TargetHostPort(target, defaultPort string) (string, error) {
	t := target
	if _, rest, ok := strings.Cut(t, "://"); ok {
		t = rest
	}
	if i := strings.IndexAny(t, "/?#"); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "@"); i >= 0 {
		t = t[i+1:]
	}
	if t == "" {
		return "", fmt.Errorf("%w: %q", errEmptyTarget, target)
	}

	if host, port, err := net.SplitHostPort(t); err == nil {
		if host == "" {
			return "", fmt.Errorf("%w: %q", errEmptyTarget, target)
		}
		if port == "" {
			port = defaultPort
		}
		return net.JoinHostPort(host, port), nil
	}

	host := strings.TrimSuffix(strings.Trim(t, "[]"), ":")
	if host == "" {
		return "", fmt.Errorf("%w: %q", errEmptyTarget, target)
	}
	return net.JoinHostPort(host, defaultPort), nil
}

// requestTarget returns the host:port a DIRECT session must connect to for the given request head.
func requestTarget(text string) (string, error) {
	if IsConnect(text) {
		parts := strings.Split(requestLine(text), " ")
		if len(parts) < 2 {
			return "", errors.New("malformed CONNECT request line")
		}
		return TargetHostPort(parts[1], "443")
	}

	if u := ExtractURL(text); u != "" && !strings.HasPrefix(u, "/") {
		if strings.HasPrefix(u, "https://") {
			return TargetHostPort(u, "443")
		}
		return TargetHostPort(u, "80")
	}

	m := hostLineExpr.FindStringSubmatch(text)
	if m == nil {
		return "", errors.New("missing Host header")
	}
	return TargetHostPort(strings.TrimSpace(m[1]), "80")
}

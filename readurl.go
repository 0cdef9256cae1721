// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

var (
	uncEmptyAuthorityExpr = regexp.MustCompile(`^file:/{4,}([^/])`)
	windowsVolumeExpr     = regexp.MustCompile(`^/?([a-zA-Z])[:\|]/`)
)

// ParseLocation parses a PAC script location.
// It accepts http, https and data URLs, file URLs as described in RFC 8089, and plain file paths.
// A value without scheme is a file path, "-" means stdin.
func ParseLocation(val string) (*url.URL, error) {
	if val == "-" {
		return &url.URL{Scheme: "file", Path: "-"}, nil
	}

	val = strings.ReplaceAll(val, "\\", "/")

	// UNC paths.
	if strings.HasPrefix(val, "//") {
		val = "file:" + val
	}
	if m := uncEmptyAuthorityExpr.FindStringSubmatch(val); m != nil {
		val = "file://" + m[1] + val[len(m[0]):]
	}

	// Drive letters look like a scheme to url.Parse.
	if windowsVolumeExpr.MatchString(val) {
		val = "file:" + val
	}

	u, err := url.Parse(val)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "file"
	}
	if u.Scheme != "file" {
		return u, nil
	}

	if u.Path == "" && u.Opaque != "" {
		u.Path, u.Opaque = u.Opaque, ""
	}
	if m := windowsVolumeExpr.FindStringSubmatch(u.Path); m != nil {
		u.Path = m[1] + ":/" + u.Path[len(m[0]):]
	}

	return u, nil
}

// ReadURLString is ReadURL returning a string.
func ReadURLString(ctx context.Context, u *url.URL, rt http.RoundTripper) (string, error) {
	b, err := ReadURL(ctx, u, rt)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadURL reads base64 encoded data URLs, local files, stdin, and http or https URLs.
// A nil rt means http.DefaultTransport.
func ReadURL(ctx context.Context, u *url.URL, rt http.RoundTripper) ([]byte, error) {
	switch u.Scheme {
	case "data":
		return readData(u)
	case "file":
		return readFile(u)
	case "http", "https":
		return readHTTP(ctx, u, rt)
	default:
		return nil, fmt.Errorf("unsupported scheme %q, supported schemes are: data, file, http and https", u.Scheme)
	}
}

func readData(u *url.URL) ([]byte, error) {
	v := strings.TrimPrefix(u.Opaque, "//")

	if meta, data, ok := strings.Cut(v, ","); ok {
		if !strings.HasSuffix(meta, "base64") {
			return nil, fmt.Errorf("invalid data URI, the only supported format is: data:[<mediatype>;]base64,<encoded data>")
		}
		v = data
	}

	return base64.StdEncoding.DecodeString(v)
}

func readFile(u *url.URL) ([]byte, error) {
	switch {
	case u.Host != "" && u.Host != "localhost":
		return nil, fmt.Errorf("invalid file URL %q, host is not allowed", u.String())
	case u.User != nil:
		return nil, fmt.Errorf("invalid file URL %q, user is not allowed", u.String())
	case u.RawQuery != "":
		return nil, fmt.Errorf("invalid file URL %q, query is not allowed", u.String())
	case u.Fragment != "":
		return nil, fmt.Errorf("invalid file URL %q, fragment is not allowed", u.String())
	case u.Path == "":
		return nil, fmt.Errorf("invalid file URL %q, path is empty", u.String())
	}

	if u.Path == "-" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(u.Path)
}

const readHTTPTimeout = 30 * time.Second

func readHTTP(ctx context.Context, u *url.URL, rt http.RoundTripper) ([]byte, error) {
	c := http.Client{
		Transport: rt,
		Timeout:   readHTTPTimeout,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status code %d", u.Redacted(), resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

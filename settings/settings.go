// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package settings reads the legacy Java properties settings file.
//
// The file supports the following keys:
//
//	PAC_URL                  PAC file path or URL, required
//	MAIN_LOCAL_PORT          port of the distribute listener, default 65000
//	USER_PASSWORD_MAP        upstream proxy credentials, see ParseUserPasswordMap
//	TIMEOUT_FOR_PROXY_CHECK  upstream liveness probe timeout in milliseconds, 0 disables the probe
package settings

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/saucelabs/preproxy"
	"github.com/saucelabs/preproxy/log"
	"github.com/spf13/viper"
)

const (
	KeyPACURL            = "PAC_URL"
	KeyMainLocalPort     = "MAIN_LOCAL_PORT"
	KeyUserPasswordMap   = "USER_PASSWORD_MAP"
	KeyProxyCheckTimeout = "TIMEOUT_FOR_PROXY_CHECK"

	DefaultMainLocalPort = 65000
)

type Settings struct {
	PAC          *url.URL
	Port         int
	Credentials  []*preproxy.HostPortUser
	ProbeTimeout time.Duration
}

// Address returns the listen address of the distribute listener.
func (s *Settings) Address() string {
	return ":" + strconv.Itoa(s.Port)
}

// Load reads the settings file at path.
func Load(path string, log log.StructuredLogger) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load settings file %s: %w", path, err)
	}
	defer f.Close()

	s, err := Read(f, log)
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return s, nil
}

// Read parses settings in the Java properties format.
// An invalid MAIN_LOCAL_PORT falls back to the default port with a warning,
// a non-numeric TIMEOUT_FOR_PROXY_CHECK disables the probe.
func Read(r io.Reader, log log.StructuredLogger) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("properties")
	if err := v.ReadConfig(r); err != nil {
		return nil, err
	}

	var s Settings

	pac := strings.TrimSpace(v.GetString(KeyPACURL))
	if pac == "" {
		return nil, errors.New("no PAC file or URL given")
	}
	u, err := preproxy.ParseLocation(pac)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyPACURL, err)
	}
	s.PAC = u

	s.Port = DefaultMainLocalPort
	if v.IsSet(KeyMainLocalPort) {
		p, err := strconv.Atoi(strings.TrimSpace(v.GetString(KeyMainLocalPort)))
		if err != nil || p < 0 || p > 65535 {
			log.Warn("MAIN_LOCAL_PORT is not a valid port number, using default", "value", v.GetString(KeyMainLocalPort), "port", DefaultMainLocalPort)
		} else {
			s.Port = p
		}
	}

	s.Credentials, err = ParseUserPasswordMap(v.GetString(KeyUserPasswordMap))
	if err != nil {
		return nil, err
	}

	s.ProbeTimeout = parseMillis(v.GetString(KeyProxyCheckTimeout))

	return &s, nil
}

var numericExpr = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func parseMillis(val string) time.Duration {
	val = strings.TrimSpace(val)
	if !numericExpr.MatchString(val) {
		return 0
	}
	ms, err := strconv.ParseFloat(val, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// ErrUserPasswordMap is returned for a USER_PASSWORD_MAP value with unbalanced brackets.
var ErrUserPasswordMap = errors.New("the configuration for USER_PASSWORD_MAP is wrong, " +
	"count the square brackets [ and ], there must be 4 of each for every entry")

// ParseUserPasswordMap parses a list of [host:port[[user][password]]] entries.
// Square brackets in passwords are written as &#91; and &#93;.
func ParseUserPasswordMap(val string) ([]*preproxy.HostPortUser, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}

	l, r := strings.Count(val, "["), strings.Count(val, "]")
	if l < 4 || l != r {
		return nil, ErrUserPasswordMap
	}

	var res []*preproxy.HostPortUser
	for val != "" {
		end := nthIndex(val, "]", 4)
		if end < 0 {
			return nil, ErrUserPasswordMap
		}
		hpu, err := parseUserPasswordEntry(val[:end+1])
		if err != nil {
			return nil, err
		}
		res = append(res, hpu)
		val = strings.TrimSpace(val[end+1:])
	}

	return res, nil
}

var passwordUnescaper = strings.NewReplacer("&#91;", "[", "&#93;", "]")

func parseUserPasswordEntry(entry string) (*preproxy.HostPortUser, error) {
	f := strings.Split(entry, "[")
	if len(f) < 5 {
		return nil, ErrUserPasswordMap
	}
	field := func(i int) string {
		return strings.TrimSpace(strings.ReplaceAll(f[i], "]", ""))
	}

	proxy, user, pass := field(1), field(3), passwordUnescaper.Replace(field(4))

	hp, err := preproxy.ParseUpstream(proxy)
	if err != nil || hp.IsDirect() {
		return nil, fmt.Errorf("%s: invalid proxy %q", KeyUserPasswordMap, proxy)
	}
	addr, err := hp.HostPort()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyUserPasswordMap, err)
	}

	hpu := &preproxy.HostPortUser{
		HostPort: addr,
		Userinfo: url.UserPassword(user, pass),
	}
	if err := hpu.Validate(); err != nil {
		return nil, fmt.Errorf("%s: proxy %s: %w", KeyUserPasswordMap, proxy, err)
	}

	return hpu, nil
}

func nthIndex(s, sep string, n int) int {
	off := 0
	for i := 0; i < n; i++ {
		idx := strings.Index(s[off:], sep)
		if idx < 0 {
			return -1
		}
		if i == n-1 {
			return off + idx
		}
		off += idx + len(sep)
	}
	return -1
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestProxyResolverPoolHammering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}
	defer goleak.VerifyNone(t)

	const script = `function FindProxyForURL(url, host) {
  if (dnsDomainIs(host, ".corp.example.com")) {
    return "PROXY proxy.corp.example.com:3128";
  }
  return "DIRECT";
}
`
	pool, err := NewProxyResolverPool(&ProxyResolverConfig{Script: script}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errc := make(chan error, 1)
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			host, want := "www.example.org", "DIRECT"
			if i%2 == 0 {
				host, want = "intranet.corp.example.com", "PROXY proxy.corp.example.com:3128"
			}
			got, err := pool.FindProxyForURL("https://"+host+"/", host)
			if err == nil && got != want {
				err = &mismatchError{host, got, want}
			}
			if err != nil {
				select {
				case errc <- err:
				default:
				}
			}
		}(i)
	}
	wg.Wait()

	select {
	case err := <-errc:
		t.Fatal(err)
	default:
	}
}

type mismatchError struct {
	host, got, want string
}

func (e *mismatchError) Error() string {
	return "FindProxyForURL(" + e.host + ") = " + e.got + ", want " + e.want
}

func TestNewProxyResolverPoolError(t *testing.T) {
	if _, err := NewProxyResolverPool(&ProxyResolverConfig{Script: "function FindProxyForURL("}, nil); err == nil {
		t.Fatal("expected error")
	}
}

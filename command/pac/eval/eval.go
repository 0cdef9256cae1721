// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package eval

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/saucelabs/preproxy"
	"github.com/saucelabs/preproxy/bind"
	"github.com/saucelabs/preproxy/log"
	"github.com/saucelabs/preproxy/log/slog"
	"github.com/saucelabs/preproxy/pac"
	"github.com/spf13/cobra"
)

type command struct {
	pac               *url.URL
	pacResolverConfig *pac.ProxyResolverConfig
	decision          bool
}

func (c *command) runE(cmd *cobra.Command, args []string) error {
	script, err := preproxy.ReadURLString(cmd.Context(), c.pac, nil)
	if err != nil {
		return fmt.Errorf("read PAC file: %w", err)
	}

	cfg := *c.pacResolverConfig
	cfg.Script = script
	cfg.Logger = slog.NewWriter(cmd.ErrOrStderr(), log.DefaultConfig())
	pr, err := pac.NewProxyResolver(&cfg, nil)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, arg := range args {
		u, err := url.Parse(arg)
		if err != nil {
			return fmt.Errorf("parse URL: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("parse URL %q: missing host", arg)
		}
		res, err := pr.FindProxyForURL(arg, u.Hostname())
		if err != nil {
			return err
		}
		if c.decision {
			fmt.Fprintln(w, preproxy.ParseDecision(res))
		} else {
			fmt.Fprintln(w, res)
		}
	}

	return nil
}

func Command() *cobra.Command {
	c := command{
		pac:               &url.URL{Scheme: "file", Path: "pac.js"},
		pacResolverConfig: &pac.ProxyResolverConfig{},
	}

	cmd := &cobra.Command{
		Use:     "eval --pac <file|url> [flags] <url>...",
		Short:   "Evaluate a PAC file for given URL (or URLs)",
		Long:    long,
		Args:    cobra.MinimumNArgs(1),
		RunE:    c.runE,
		Example: example + "\n" + supportedFunctions(),
	}

	fs := cmd.Flags()
	bind.PAC(fs, &c.pac)
	bind.PACResolverConfig(fs, c.pacResolverConfig)
	fs.BoolVar(&c.decision, "decision", false,
		"Print the upstream the gateway would route to instead of the raw PAC result. "+
			"Only the first entry of the result is used, anything but PROXY means DIRECT. ")

	bind.AutoMarkFlagFilename(cmd)

	return cmd
}

func supportedFunctions() string {
	var sb strings.Builder
	sb.WriteString("Supported PAC util functions:")
	for _, fn := range pac.SupportedFunctions() {
		sb.WriteString("\n  ")
		sb.WriteString(fn)
	}
	return sb.String()
}

const long = `The output is a list of proxy strings, one per URL.
The PAC file can be specified as a file path or URL with scheme "file", "http", "https" or "data".
The PAC file must contain FindProxyForURL or FindProxyForURLEx and must be valid.
Alerts are written to stderr.
`

const example = `  # Evaluate PAC file for multiple URLs
  preproxy pac eval --pac pac.js https://www.google.com https://www.facebook.com

  # Show where the gateway would route a connection
  preproxy pac eval --pac pac.js --decision https://www.google.com
`

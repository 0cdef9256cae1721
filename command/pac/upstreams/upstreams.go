// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package upstreams

import (
	"fmt"
	"net/url"

	"github.com/saucelabs/preproxy"
	"github.com/saucelabs/preproxy/bind"
	"github.com/spf13/cobra"
)

type command struct {
	pac *url.URL
}

func (c *command) runE(cmd *cobra.Command, _ []string) error {
	script, err := preproxy.ReadURLString(cmd.Context(), c.pac, nil)
	if err != nil {
		return fmt.Errorf("read PAC file: %w", err)
	}

	w := cmd.OutOrStdout()
	for _, u := range preproxy.EnumerateUpstreams(script) {
		fmt.Fprintln(w, u)
	}

	return nil
}

func Command() *cobra.Command {
	c := command{
		pac: &url.URL{Scheme: "file", Path: "pac.js"},
	}

	cmd := &cobra.Command{
		Use:   "upstreams --pac <file|url>",
		Short: "List upstream proxies the gateway opens listeners for",
		Long: "Every PROXY host:port found in the PAC script text gets its own listener. " +
			"The list is taken from the script text, the script is not evaluated.",
		Args:    cobra.NoArgs,
		RunE:    c.runE,
		Example: "  preproxy pac upstreams --pac pac.js\n",
	}

	bind.PAC(cmd.Flags(), &c.pac)
	bind.AutoMarkFlagFilename(cmd)

	return cmd
}

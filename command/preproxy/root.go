// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package preproxy

import (
	"github.com/saucelabs/preproxy/bind"
	"github.com/saucelabs/preproxy/command/pac"
	"github.com/saucelabs/preproxy/command/run"
	"github.com/saucelabs/preproxy/command/version"
	"github.com/saucelabs/preproxy/utils/cobrautil"
	"github.com/spf13/cobra"
)

const (
	EnvPrefix          = "PREPROXY"
	ConfigFileFlagName = "config-file"

	usageWidth = 80
)

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preproxy",
		Short: "Local HTTP proxy gateway routing connections to upstream proxies chosen by a PAC script",
		Long: "Clients use a single local listener as their HTTP proxy. " +
			"For every connection the PAC script picks an upstream proxy or DIRECT, " +
			"the connection is then relayed through a local listener dedicated to that upstream, " +
			"adding Proxy-Authorization to requests when credentials are configured.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cobrautil.BindAll(cmd, EnvPrefix, ConfigFileFlagName)
		},
	}
	bind.ConfigFile(cmd.PersistentFlags(), new(string))

	cmd.AddCommand(
		run.Command(),
		pac.Command(),
		version.Command(),
	)

	cobrautil.DefaultLong(cmd)
	cobrautil.NoHelpSubcommand(cmd)
	cobrautil.SetUsage(cmd, EnvPrefix, usageWidth)

	return cmd
}

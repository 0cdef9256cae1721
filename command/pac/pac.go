// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"github.com/saucelabs/preproxy/command/pac/eval"
	"github.com/saucelabs/preproxy/command/pac/upstreams"
	"github.com/spf13/cobra"
)

func Command() (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:   "pac",
		Short: "Tools for working with PAC files",
	}
	cmd.AddCommand(
		eval.Command(),
		upstreams.Command(),
	)
	return cmd
}

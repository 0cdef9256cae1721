// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cobrautil binds cobra flags to the environment and config files, and prints flag help.
package cobrautil

import (
	"github.com/spf13/cobra"
)

// DefaultLong prefixes the long description with the short one.
func DefaultLong(cmd *cobra.Command) {
	if cmd.Short == "" {
		return
	}
	if cmd.Long == "" {
		cmd.Long = cmd.Short + "."
	} else {
		cmd.Long = cmd.Short + ".\n\n" + cmd.Long
	}
}

func NoHelpSubcommand(cmd *cobra.Command) {
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

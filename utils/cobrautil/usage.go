// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const usageIndent = "        "

// SetUsage replaces the cobra usage output of cmd and its subcommands.
// Every flag is printed with its value placeholder, default value and environment variable,
// the description is wrapped to width columns.
func SetUsage(cmd *cobra.Command, envPrefix string, width uint) {
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		w := c.OutOrStderr()
		fmt.Fprintf(w, "Usage:\n  %s\n", c.UseLine())
		if c.HasAvailableSubCommands() {
			fmt.Fprintln(w, "\nCommands:")
			for _, sub := range c.Commands() {
				if sub.IsAvailableCommand() {
					fmt.Fprintf(w, "  %-12s %s\n", sub.Name(), sub.Short)
				}
			}
		}
		if c.HasAvailableFlags() {
			fmt.Fprintln(w, "\nFlags:")
			c.Flags().VisitAll(func(f *pflag.Flag) {
				if !f.Hidden {
					WriteFlagUsage(w, f, envPrefix, width)
				}
			})
		}
		return nil
	})
}

// WriteFlagUsage prints a single flag in the SetUsage format.
func WriteFlagUsage(w io.Writer, f *pflag.Flag, envPrefix string, width uint) {
	placeholder, usage := splitUsage(f)

	var sb strings.Builder
	sb.WriteString("  ")
	if f.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", f.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", f.Name)
	if placeholder != "" {
		sb.WriteString(" " + placeholder)
	}
	if def := f.DefValue; def != "" && def != "[]" && def != "0" && def != "0s" && def != "false" {
		fmt.Fprintf(&sb, " (default %s)", def)
	}
	if envPrefix != "" && f.Name != "help" {
		fmt.Fprintf(&sb, " (env %s)", EnvName(envPrefix, f.Name))
	}
	sb.WriteString("\n")

	if width > uint(len(usageIndent)) {
		usage = wordwrap.WrapString(usage, width-uint(len(usageIndent)))
	}
	for _, l := range strings.Split(usage, "\n") {
		sb.WriteString(usageIndent + l + "\n")
	}
	sb.WriteString("\n")

	io.WriteString(w, sb.String()) //nolint:errcheck // best effort
}

// splitUsage separates a leading <placeholder> from the flag description.
// Flags without placeholder get one based on the value type, booleans get none.
func splitUsage(f *pflag.Flag) (placeholder, usage string) {
	usage = f.Usage
	if strings.HasPrefix(usage, "<") {
		if i := strings.Index(usage, ">"); i > 0 && i+1 < len(usage) && unicode.IsUpper(rune(usage[i+1])) {
			return usage[:i+1], usage[i+1:]
		}
	}
	if f.Value.Type() == "bool" {
		return "", usage
	}
	name, u := pflag.UnquoteUsage(f)
	if name == "" || name == "string" {
		name = "value"
	}
	return "<" + name + ">", u
}

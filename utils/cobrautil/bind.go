// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var sliceReplacer = strings.NewReplacer(", ", ",", " ", ",")

// BindAll sets flags that were not given on the command line from environment variables and the config file.
// The precedence order is: command flags, environment variables, config file, default values.
// The config file format is taken from the file extension, files without extension are read as YAML.
func BindAll(cmd *cobra.Command, envPrefix, configFileFlagName string) error {
	v := viper.New()

	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	v.SetEnvKeyReplacer(envReplacer)
	v.SetEnvPrefix(envReplacer.Replace(strings.ToUpper(envPrefix)))
	v.AutomaticEnv()

	if configFileFlagName != "" {
		if f := v.GetString(configFileFlagName); f != "" {
			if filepath.Ext(f) == "" {
				v.SetConfigType("yaml")
			}
			v.SetConfigFile(f)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file %s: %w", f, err)
			}
		}
	}

	var errs []string
	set := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Changed || !v.IsSet(f.Name) {
				return
			}
			val := fmt.Sprintf("%v", v.Get(f.Name))
			val = strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
			if _, ok := f.Value.(sliceValue); ok {
				val = sliceReplacer.Replace(val)
			}
			if err := fs.Set(f.Name, val); err != nil {
				errs = append(errs, err.Error())
			}
		})
	}
	set(cmd.PersistentFlags())
	set(cmd.Flags())

	if len(errs) > 0 {
		return fmt.Errorf("bind flags: %s", strings.Join(errs, "; "))
	}
	return nil
}

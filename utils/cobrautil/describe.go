// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

type DescribeFormat int

const (
	Plain DescribeFormat = iota
	JSON
	YAML
)

// DescribeFlags renders the current flag values, flags holding secrets print their redacted form.
// The help flag is never included, hidden flags only when showHidden is set.
func DescribeFlags(fs *pflag.FlagSet, showHidden bool, format DescribeFormat) (string, error) {
	args := make(map[string]any, fs.NFlag())
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" || (f.Hidden && !showHidden) {
			return
		}
		args[f.Name] = flagValue(f, format)
	})

	switch format {
	case Plain:
		keys := maps.Keys(args)
		sort.Strings(keys)
		var sb strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s=%v\n", k, args[k])
		}
		return sb.String(), nil
	case JSON:
		b, err := json.Marshal(args)
		return string(b), err
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(args); err != nil {
			return "", err
		}
		err := enc.Close()
		return buf.String(), err
	default:
		return "", fmt.Errorf("unknown format %d", format)
	}
}

func flagValue(f *pflag.Flag, format DescribeFormat) any {
	if f.Value.Type() == "bool" {
		if b, err := strconv.ParseBool(f.Value.String()); err == nil {
			return b
		}
	}
	if sv, ok := f.Value.(sliceValue); ok {
		if format == Plain {
			return strings.Join(sv.GetSlice(), ",")
		}
		return sv.GetSlice()
	}
	return f.Value.String()
}

type sliceValue interface {
	GetSlice() []string
}

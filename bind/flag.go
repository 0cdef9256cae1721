// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"net/url"
	"strings"

	"github.com/mmatczuk/anyflag"
	"github.com/saucelabs/preproxy"
	"github.com/saucelabs/preproxy/log"
	"github.com/saucelabs/preproxy/pac"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func ConfigFile(fs *pflag.FlagSet, configFile *string) {
	fs.StringVarP(configFile,
		"config-file", "c", *configFile, "<path>"+
			"Configuration file to load options from. "+
			"The supported formats are: JSON, YAML, TOML, HCL, and Java properties. "+
			"The file format is determined by the file extension, if not specified the default format is YAML. "+
			"The following precedence order of configuration sources is used: command flags, environment variables, config file, default values. ")
}

func SettingsFile(fs *pflag.FlagSet, settingsFile *string) {
	fs.StringVar(settingsFile,
		"settings", *settingsFile, "<path>"+
			"Legacy settings file in Java properties format with PAC_URL, MAIN_LOCAL_PORT, USER_PASSWORD_MAP and TIMEOUT_FOR_PROXY_CHECK keys. "+
			"Values from the file are used for options that are not set by flags, environment variables or the config file. ")
}

func PAC(fs *pflag.FlagSet, pac **url.URL) {
	fs.VarP(anyflag.NewValueWithRedact[*url.URL](*pac, pac, preproxy.ParseLocation, RedactURL),
		"pac", "p", "<path or URL>"+
			"Proxy Auto-Configuration file to route connections with. "+
			"Every PROXY host:port found in the script gets its own local listener. "+
			"It can be a local file, an http(s) URL or a base64 encoded data URL, you can also use '-' to read from stdin. ")
}

func PACResolverConfig(fs *pflag.FlagSet, cfg *pac.ProxyResolverConfig) {
	fs.DurationVar(&cfg.DNSTimeout,
		"pac-dns-timeout", cfg.DNSTimeout,
		"Timeout for DNS lookups made by the PAC script helpers such as dnsResolve and isInNet. "+
			"Zero means no limit. ")
}

func Credentials(fs *pflag.FlagSet, credentials *[]*preproxy.HostPortUser) {
	fs.VarP(anyflag.NewSliceValueWithRedact[*preproxy.HostPortUser](*credentials, credentials, preproxy.ParseHostPortUser, preproxy.RedactHostPortUser),
		"credentials", "s", "<username:password@host:port>"+
			"Upstream proxy basic authentication credentials. "+
			"The host:port must match a PROXY entry of the PAC script exactly. "+
			"The Proxy-Authorization header is added to every request routed to that proxy unless the client sent one. "+
			"The flag can be specified multiple times to add multiple credentials. ")
}

func GatewayConfig(fs *pflag.FlagSet, cfg *preproxy.GatewayConfig) {
	fs.StringVar(&cfg.Address,
		"address", cfg.Address, "<host:port>"+
			"The address of the listener clients use as their HTTP proxy. "+
			"If the host is empty, the listener accepts connections on all available interfaces. ")

	fs.StringVar(&cfg.LoopbackAddress,
		"loopback-address", cfg.LoopbackAddress, "<host:port>"+
			"The address of the DIRECT and per upstream proxy listeners. "+
			"Use port 0, every listener binds its own port. ")

	fs.DurationVar(&cfg.ProbeTimeout,
		"probe-timeout", cfg.ProbeTimeout,
		"Timeout for checking that the upstream proxy chosen by the PAC script accepts connections. "+
			"If the check fails, the connection is made directly. "+
			"Zero disables the check. ")

	fs.Int64Var(&cfg.ReadLimit,
		"read-limit", cfg.ReadLimit, "<bytes per second>"+
			"Global read rate limit of client connections. "+
			"Zero means no limit. ")

	fs.Int64Var(&cfg.WriteLimit,
		"write-limit", cfg.WriteLimit, "<bytes per second>"+
			"Global write rate limit of client connections. "+
			"Zero means no limit. ")

	SessionConfig(fs, &cfg.Session)
	DialConfig(fs, &cfg.Dial)
}

func SessionConfig(fs *pflag.FlagSet, cfg *preproxy.SessionConfig) {
	fs.IntVar(&cfg.BufferSize,
		"buffer-size", cfg.BufferSize, "<bytes>"+
			"Size of the read buffer of each relay direction. "+
			"The first read of a connection must contain the whole request line and Host header. ")

	fs.DurationVar(&cfg.DestinationWaitTimeout,
		"destination-wait-timeout", cfg.DestinationWaitTimeout,
		"Maximum time client data waits for the destination connection to be established. ")

	fs.DurationVar(&cfg.UpstreamIdleTimeout,
		"upstream-idle-timeout", cfg.UpstreamIdleTimeout,
		"Close connections to upstream proxies that send no data for that long. "+
			"Zero means no timeout. ")
}

func DialConfig(fs *pflag.FlagSet, cfg *preproxy.DialConfig) {
	fs.DurationVar(&cfg.DialTimeout,
		"dial-timeout", cfg.DialTimeout,
		"The maximum amount of time a dial will wait for a connect to complete. "+
			"With or without a timeout, the operating system may impose its own earlier timeout. For instance, TCP timeouts are often around 3 minutes. ")

	fs.BoolVar(&cfg.KeepAlive,
		"dial-keep-alive", cfg.KeepAlive,
		"Enable TCP keep-alive probes on outgoing connections. ")
}

func APIServerConfig(fs *pflag.FlagSet, cfg *preproxy.HTTPServerConfig) {
	fs.StringVar(&cfg.Addr,
		"api-address", cfg.Addr, "<host:port>"+
			"The address of the API server serving metrics, health checks, the PAC script and debug endpoints. "+
			"Empty disables the API server. ")

	fs.DurationVar(&cfg.ReadTimeout,
		"api-read-timeout", cfg.ReadTimeout,
		"The amount of time allowed to read API requests. ")
}

func LogConfig(fs *pflag.FlagSet, cfg *log.Config) {
	fs.Var(newLogFileValue(&cfg.File),
		"log-file", "<path>"+
			"Path to the log file, if empty, logs to stdout. "+
			"The file is reopened on SIGHUP to allow log rotation using external tools. ")

	fs.Var(anyflag.NewValue[log.Level](cfg.Level, &cfg.Level, anyflag.EnumParser[log.Level](log.Levels()...)),
		"log-level", "<error|warn|info|debug>"+
			"Log level. ")

	fs.Var(anyflag.NewValue[log.Format](cfg.Format, &cfg.Format, anyflag.EnumParser[log.Format](log.Formats()...)),
		"log-format", "<text|json>"+
			"Log format. ")
}

func MarkFlagHidden(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.Flags().MarkHidden(name); err != nil {
			panic(err)
		}
	}
}

func AutoMarkFlagFilename(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.HasPrefix(f.Usage, "<path") ||
			strings.HasSuffix(f.Name, "-file") ||
			f.Name == "settings" {
			if err := cmd.MarkFlagFilename(f.Name); err != nil {
				panic(err)
			}
		}
	})
}

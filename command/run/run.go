// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package run

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/saucelabs/preproxy"
	"github.com/saucelabs/preproxy/bind"
	"github.com/saucelabs/preproxy/internal/version"
	"github.com/saucelabs/preproxy/log"
	"github.com/saucelabs/preproxy/log/slog"
	"github.com/saucelabs/preproxy/pac"
	"github.com/saucelabs/preproxy/runctx"
	"github.com/saucelabs/preproxy/settings"
	"github.com/saucelabs/preproxy/utils/cobrautil"
	"github.com/spf13/cobra"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
)

type command struct {
	promReg           *prometheus.Registry
	settingsFile      string
	pac               *url.URL
	pacResolverConfig *pac.ProxyResolverConfig
	credentials       []*preproxy.HostPortUser
	gatewayConfig     *preproxy.GatewayConfig
	apiServerConfig   *preproxy.HTTPServerConfig
	logConfig         *log.Config

	dryRun bool
	goleak bool
}

func (c *command) runE(cmd *cobra.Command, _ []string) (cmdErr error) {
	if f := c.logConfig.File; f != nil {
		defer f.Close()
	}
	onError, err := c.registerErrorsMetric()
	if err != nil {
		return fmt.Errorf("register errors metric: %w", err)
	}
	logger := slog.New(c.logConfig, slog.WithOnError(onError))

	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close logger: %s\n", err)
		}
	}()

	defer func() {
		if cmdErr != nil {
			logger.Error("fatal error exiting", "error", cmdErr)
			cmd.SilenceErrors = true
		}
	}()

	logger.Info("preproxy starting", "version", version.Version, "commit", version.Commit)
	logger.Debug("resource limits", "GOMAXPROCS", runtime.GOMAXPROCS(0), "GOMEMLIMIT", os.Getenv("GOMEMLIMIT"))

	if c.settingsFile != "" {
		if err := c.applySettings(cmd, logger.Named("settings")); err != nil {
			return startupError("load settings", err)
		}
	}
	if c.pac == nil {
		return startupError("validate config", errors.New("no PAC file or URL given, use --pac or --settings"))
	}

	cfg, err := cobrautil.DescribeFlags(cmd.Flags(), true, cobrautil.Plain)
	if err != nil {
		return err
	}
	logger.Debug("configuration\n" + cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	script, err := preproxy.ReadURLString(ctx, c.pac, nil)
	if err != nil {
		return startupError("read PAC file", err)
	}

	var pr preproxy.PACResolver
	{
		rc := *c.pacResolverConfig
		rc.Script = script
		rc.Logger = logger.Named("pac")
		p, err := pac.NewProxyResolverPool(&rc, nil)
		if err != nil {
			return startupError("load PAC script", err)
		}
		if _, err := p.FindProxyForURL("https://example.com/", "example.com"); err != nil {
			return startupError("evaluate PAC script", err)
		}
		pr = &preproxy.LoggingPACResolver{
			Resolver: p,
			Logger:   logger.Named("pac"),
		}
	}

	cm, err := preproxy.NewCredentialsMatcher(c.credentials)
	if err != nil {
		return startupError("credentials", err)
	}

	c.gatewayConfig.PromRegistry = c.promReg
	gw, err := preproxy.NewGateway(c.gatewayConfig, script, pr, cm, logger.Named("gateway"))
	if err != nil {
		return err
	}
	if err := gw.Start(); err != nil {
		return err
	}
	defer gw.Close()

	g := runctx.NewGroup(gw.Run)

	{
		if err := c.registerGoMaxProcsMetric(); err != nil {
			return fmt.Errorf("register GOMAXPROCS metric: %w", err)
		}
		if err := c.registerProcMetrics(); err != nil {
			return fmt.Errorf("register process metrics: %w", err)
		}
		if err := c.registerVersionMetric(); err != nil {
			return fmt.Errorf("register version metric: %w", err)
		}

		if c.apiServerConfig.Addr != "" {
			h := preproxy.NewAPIHandler(c.promReg, gw, cfg, script)
			a, err := preproxy.NewHTTPServer(c.apiServerConfig, h, logger.Named("api"))
			if err != nil {
				return err
			}
			defer a.Close()
			g.Add(a.Run)
		}
	}

	if c.goleak {
		defer func() {
			if err := goleak.Find(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "goleak: %s", err)
				os.Exit(1)
			}
		}()
	}

	if c.dryRun {
		return nil
	}

	return g.RunContext(ctx)
}

// applySettings sets flags that were not given in any other way from the legacy settings file.
func (c *command) applySettings(cmd *cobra.Command, log log.StructuredLogger) error {
	s, err := settings.Load(c.settingsFile, log)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	if !fs.Changed("pac") {
		c.pac = s.PAC
	}
	if !fs.Changed("address") {
		c.gatewayConfig.Address = s.Address()
	}
	if !fs.Changed("credentials") {
		c.credentials = s.Credentials
	}
	if !fs.Changed("probe-timeout") {
		c.gatewayConfig.ProbeTimeout = s.ProbeTimeout
	}

	log.Info("loaded settings file", "path", c.settingsFile, "address", c.gatewayConfig.Address, "pac", bind.RedactURL(c.pac))

	return nil
}

func (c *command) registerErrorsMetric() (func(name string), error) {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.gatewayConfig.PromNamespace,
		Name:      "errors_total",
		Help:      "Number of errors",
	}, []string{"name"})

	if err := c.promReg.Register(m); err != nil {
		return nil, err
	}

	return func(name string) {
		m.WithLabelValues(name).Inc()
	}, nil
}

func (c *command) registerGoMaxProcsMetric() error {
	return c.promReg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "go_env",
		Name:      "gomaxprocs",
		Help:      "Number of maximum goroutines that can be executed simultaneously",
	}, func() float64 {
		return float64(runtime.GOMAXPROCS(0))
	}))
}

func (c *command) registerProcMetrics() error {
	return multierr.Combine(
		// ProcessCollector is only available in Linux and Windows.
		c.promReg.Register(collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{Namespace: c.gatewayConfig.PromNamespace})),
		c.promReg.Register(collectors.NewGoCollector()),
	)
}

func (c *command) registerVersionMetric() error {
	return c.promReg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.gatewayConfig.PromNamespace,
		Name:      "version",
		Help:      "Preproxy version, value is always 1",
		ConstLabels: prometheus.Labels{
			"version": version.Version,
			"commit":  version.Commit,
			"time":    version.Time,
		},
	}, func() float64 {
		return 1
	}))
}

func Command() *cobra.Command {
	c := makeCommand()
	return c.cobraCommand()
}

// DryRunCommand returns the run command that exits once the gateway is started, for testing.
func DryRunCommand() *cobra.Command {
	c := makeCommand()
	c.dryRun = true
	return c.cobraCommand()
}

func (c *command) cobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run [--pac <path or URL>] [--settings <path>] [flags]",
		Short:   "Start the gateway",
		Long:    long,
		RunE:    c.runE,
		Example: example,
	}

	fs := cmd.Flags()
	bind.SettingsFile(fs, &c.settingsFile)
	bind.PAC(fs, &c.pac)
	bind.PACResolverConfig(fs, c.pacResolverConfig)
	bind.Credentials(fs, &c.credentials)
	bind.GatewayConfig(fs, c.gatewayConfig)
	bind.APIServerConfig(fs, c.apiServerConfig)
	bind.LogConfig(fs, c.logConfig)

	fs.BoolVar(&c.goleak, "goleak", false, "enable goleak")
	bind.MarkFlagHidden(cmd, "goleak")
	bind.AutoMarkFlagFilename(cmd)

	return cmd
}

func makeCommand() *command {
	return &command{
		promReg:           prometheus.NewRegistry(),
		pacResolverConfig: &pac.ProxyResolverConfig{},
		gatewayConfig:     preproxy.DefaultGatewayConfig(),
		apiServerConfig:   preproxy.DefaultHTTPServerConfig(),
		logConfig:         log.DefaultConfig(),
	}
}

const long = `The gateway opens a local listener for DIRECT connections and one for every PROXY host:port named in the PAC script.
Clients connect to the address listener, the PAC script is evaluated for the first request of every connection,
and the connection is relayed through the listener of the chosen upstream.
When --probe-timeout is set, an upstream proxy that does not accept TCP connections in time is replaced with DIRECT.
CONNECT requests routed to DIRECT are answered by the gateway and tunneled to the origin server.
`

const example = `  # Start the gateway with a local PAC file
  preproxy run --pac pac.js

  # Start the gateway with credentials for an upstream proxy
  preproxy run --pac https://example.com/pac.js --credentials user:pass@proxy.corp:3128

  # Start the gateway from a legacy settings file
  preproxy run --settings settings.properties
`

func startupError(op string, err error) error {
	return &preproxy.StartupError{Op: op, Err: err}
}

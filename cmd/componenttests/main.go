// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command componenttests runs the request-response component tests. Each
// test runs its server and client sides on separate goroutines sharing one
// node, so every run finishes on its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/reqresp"
	"code.hybscloud.com/reqresp/componenttest"
	"code.hybscloud.com/reqresp/internal/config"
	"code.hybscloud.com/reqresp/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "componenttests",
		Short:         "Run request-response component tests",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCommand(), newListCommand(), newEnvCommand())
	return root
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the component tests and their services",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, t := range componenttest.Tests() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.Name(), componenttest.ServiceName(t.Name()))
			}
		},
	}
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the supported environment variables",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return config.Usage()
		},
	}
}

func newRunCommand() *cobra.Command {
	var (
		dev         bool
		refresh     time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "run [test...]",
		Short: "Run the named tests, or all tests, one after another",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("dev") {
				cfg.LogDevelopment = dev
			}
			if flags.Changed("refresh") {
				cfg.RefreshInterval = refresh
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddress = metricsAddr
			}
			tests, err := selectTests(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, tests)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "log in development format")
	cmd.Flags().DurationVar(&refresh, "refresh", reqresp.DefaultRefreshInterval, "session wait timeout")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func selectTests(names []string) ([]componenttest.Test, error) {
	if len(names) == 0 {
		return componenttest.Tests(), nil
	}
	tests := make([]componenttest.Test, 0, len(names))
	for _, name := range names {
		t, ok := componenttest.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown component test %q", name)
		}
		tests = append(tests, t)
	}
	return tests, nil
}

func run(ctx context.Context, cfg *config.Config, tests []componenttest.Test) error {
	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	node := reqresp.NewNode(reqresp.WithContext(ctx), reqresp.WithNodeName("componenttests"))
	defer node.Shutdown()

	opts := componenttest.Options{
		RefreshInterval: cfg.RefreshInterval,
		Service:         cfg.ServiceOptions(),
		Logger:          logger,
	}
	if cfg.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		opts.Metrics = reqresp.NewMetrics(reg)
		srv := &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	logger.Info("component tests starting",
		zap.Stringer("node", node.ID()),
		zap.Int("tests", len(tests)))
	for _, t := range tests {
		log := logger.With(zap.String("test", t.Name()), zap.String("service", componenttest.ServiceName(t.Name())))
		log.Info("running test")
		if err := runTest(ctx, node, t, opts); err != nil {
			log.Error("test failed", zap.Error(err))
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
		log.Info("test passed")
	}
	return nil
}

// runTest runs both sides of t. Services live in the node's domain, which
// is local to this process.
func runTest(ctx context.Context, node *reqresp.Node, t componenttest.Test, opts componenttest.Options) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return t.Serve(node, opts) })
	g.Go(func() error { return t.Request(node, opts) })
	return g.Wait()
}

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/extstore/internal/config"
	"github.com/vango-dev/extstore/internal/demo"
	"github.com/vango-dev/extstore/pkg/middleware"
	"github.com/vango-dev/extstore/pkg/reactive"
	"github.com/vango-dev/extstore/pkg/server"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		port    int
		host    string
		metrics bool
		tracing bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application",
		Long: `Serve the demo application over HTTP.

Each browser tab gets its own session and store. Metrics are served on
the configured path when enabled.

Examples:
  extstore serve
  extstore serve --port=8080 --metrics
  extstore serve --config=prod.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("metrics") {
				cfg.Metrics.Enabled = metrics
			}
			if cmd.Flags().Changed("tracing") {
				cfg.Tracing.Enabled = tracing
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			success(cmd.OutOrStdout(), "Serving %s on %s", cfg.Name, cfg.URL())
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Serve Prometheus metrics")
	cmd.Flags().BoolVar(&tracing, "tracing", false, "Trace events with OpenTelemetry")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	initial := demo.InitialState(cfg.Initial)
	newRoot := func(opts ...reactive.RootOption) *reactive.Root {
		return demo.NewRoot(initial, opts...)
	}

	var opts []server.Option
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(registry),
		)
		opts = append(opts, server.WithMetrics(m, registry))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, server.WithTracing(middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
		)))
	}

	s := server.New(cfg, newRoot, opts...)
	slog.Info("starting server",
		"addr", cfg.Address(),
		"metrics", cfg.Metrics.Enabled,
		"tracing", cfg.Tracing.Enabled)
	return s.ListenAndServe(ctx)
}

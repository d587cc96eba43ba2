package cli

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/logging"
	"github.com/ivked85/filterman/internal/metrics"
	"github.com/ivked85/filterman/internal/server"
)

func newServeCommand() *cobra.Command {
	opts := &sourceOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve filtered records over HTTP",
		Long: `Serve exposes the data over HTTP. The query string of a request is the
filter parameter source:

  GET /hosts                  list declared hosts
  GET /hosts/{host}           apply the host's filters
  GET /hosts/{host}/explain   per-filter strategy and counts
  GET /metrics                prometheus metrics
  GET /healthz                liveness

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Example: `  filterman serve --filters filters.yaml --data users.json --listen :8080
  curl 'localhost:8080/hosts/users?status=active&q=al'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	registerSourceFlags(cmd, opts)
	cmd.Flags().String("listen", config.DefaultListen, "address to listen on")
	cmd.Flags().Duration("shutdown-timeout", config.DefaultShutdownTimeout, "time allowed for in-flight requests on shutdown")

	return cmd
}

func runServe(cmd *cobra.Command, opts *sourceOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.FromContext(ctx)
	cfg := config.FromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obs, err := metrics.New(reg)
	if err != nil {
		return err
	}

	src, err := openSource(ctx, opts, obs)
	if err != nil {
		return err
	}
	defer src.Close()

	srv := server.New(cfg.Listen, src.data,
		server.WithGatherer(reg),
		server.WithLogger(logger),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
	)

	return srv.Run(ctx)
}

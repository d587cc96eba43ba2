package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/logging"
	"github.com/ivked85/filterman/internal/output"
	"github.com/ivked85/filterman/internal/watch"
)

type applyOptions struct {
	sourceOptions
	paramOptions
	outputOptions

	watch bool
}

func newApplyCommand() *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a host's filters and print the matching records",
		Long: `Apply loads the filter declarations and the records, runs every filter
declared for the host in order, and prints the records that remain.

Parameters come from --query (a URL query string) and --param key=value.
With --watch, the declaration and data files are watched and the filters
are re-applied on every change.`,
		Example: `  filterman apply --filters filters.yaml --data users.json --host users -p status=active
  filterman apply --filters filters.yaml --db app.db --table users --query 'role=admin&q=al'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerParamFlags(cmd, &opts.paramOptions)
	registerOutputFlags(cmd, &opts.outputOptions)

	f := cmd.Flags()
	f.BoolVar(&opts.watch, "watch", false, "re-apply when the declaration or data files change")
	f.Duration("debounce", config.DefaultDebounce, "quiet period before re-applying in --watch mode")

	return cmd
}

func runApply(cmd *cobra.Command, opts *applyOptions) error {
	ctx := cmd.Context()

	params, err := opts.values()
	if err != nil {
		return err
	}

	enc, err := opts.encoder()
	if err != nil {
		return err
	}

	run := func(ctx context.Context) (*watch.RunResult, error) {
		return applyOnce(ctx, cmd, opts, params, enc)
	}

	if !opts.watch {
		_, err := run(ctx)
		return err
	}

	cfg := config.FromContext(ctx)
	opts.fill(cfg)

	files := []string{opts.filters, opts.data}
	if opts.data == "" {
		files = []string{opts.filters, opts.db}
	}

	wopts := watch.DefaultOptions()
	wopts.Files = files
	wopts.Debounce = cfg.Debounce
	wopts.Logger = logging.FromContext(ctx)
	wopts.Out = cmd.ErrOrStderr()

	return watch.Run(ctx, wopts, run)
}

// applyOnce loads the inputs, applies the filters and writes the result.
func applyOnce(ctx context.Context, cmd *cobra.Command, opts *applyOptions, params filter.Params, enc output.EncodeFunc) (*watch.RunResult, error) {
	logger := logging.FromContext(ctx)

	src, err := openSource(ctx, &opts.sourceOptions)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	host, err := opts.resolveHost(src.data)
	if err != nil {
		return nil, err
	}

	res, err := src.data.Apply(ctx, host, params)
	if err != nil {
		return nil, applyError(err)
	}

	data, err := opts.render(enc, res.Records)
	if err != nil {
		return nil, err
	}

	w := output.NewWriter(opts.output, cmd.OutOrStdout(), output.WithLogger(logger))
	if err := w.Write(data); err != nil {
		return nil, err
	}

	logger.Info("filters applied",
		slog.String("host", host),
		slog.Int("total", res.Total),
		slog.Int("matched", res.Records.Len()),
	)

	return &watch.RunResult{Host: host, Total: res.Total, Matched: res.Records.Len(), OutputPath: opts.output}, nil
}

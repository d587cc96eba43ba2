package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/output"
)

type diffOptions struct {
	sourceOptions
	paramOptions
	outputOptions

	context  int
	exitCode bool
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the records a filter run removes as a unified diff",
		Long: `Diff renders the host's records once without parameters and once with
the given parameters, and prints a unified diff of the two renderings.

With --exit-code the command exits with status 1 when the parameters
removed any record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiff(cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerParamFlags(cmd, &opts.paramOptions)
	registerOutputFlags(cmd, &opts.outputOptions)

	f := cmd.Flags()
	f.IntVar(&opts.context, "context", 3, "number of context lines")
	f.BoolVar(&opts.exitCode, "exit-code", false, "exit with status 1 when records were removed")

	return cmd
}

func runDiff(cmd *cobra.Command, opts *diffOptions) error {
	ctx := cmd.Context()

	params, err := opts.values()
	if err != nil {
		return err
	}

	enc, err := opts.encoder()
	if err != nil {
		return err
	}

	src, err := openSource(ctx, &opts.sourceOptions)
	if err != nil {
		return err
	}
	defer src.Close()

	host, err := opts.resolveHost(src.data)
	if err != nil {
		return err
	}

	// Without parameters every filter is skipped, which yields the input.
	all, err := src.data.Apply(ctx, host, filter.Values{})
	if err != nil {
		return applyError(err)
	}

	filtered, err := src.data.Apply(ctx, host, params)
	if err != nil {
		return applyError(err)
	}

	before, err := opts.render(enc, all.Records)
	if err != nil {
		return err
	}

	after, err := opts.render(enc, filtered.Records)
	if err != nil {
		return err
	}

	dopts := output.DefaultDiffOptions()
	dopts.Context = opts.context

	res, err := output.Diff(before, after, dopts)
	if err != nil {
		return err
	}

	if err := output.NewWriter(opts.output, cmd.OutOrStdout()).Write([]byte(res.Unified)); err != nil {
		return err
	}

	removed := all.Records.Len() - filtered.Records.Len()
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d of %d records kept, %d removed\n",
		host, filtered.Records.Len(), all.Records.Len(), removed)

	if opts.exitCode && res.HasDifferences {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d record(s) removed", removed)}
	}

	return nil
}

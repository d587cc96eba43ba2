package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/dataset"
)

type explainOptions struct {
	sourceOptions
	paramOptions

	json bool
}

func newExplainCommand() *cobra.Command {
	opts := &explainOptions{}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how each filter of a host narrows the records",
		Long: `Explain runs the host's filters one at a time and prints, for each
filter, the strategy chosen for the given parameters (scope, query, where,
or skip for a blank parameter) and the number of records left afterwards.
For SQLite data the SQL after each step is shown as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplain(cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerParamFlags(cmd, &opts.paramOptions)
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the steps as JSON")

	return cmd
}

func runExplain(cmd *cobra.Command, opts *explainOptions) error {
	ctx := cmd.Context()

	params, err := opts.values()
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

	steps, err := src.data.Explain(ctx, host, params)
	if err != nil {
		return applyError(err)
	}

	if opts.json {
		b, err := json.MarshalIndent(steps, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))

		return err
	}

	return printSteps(cmd, host, steps)
}

func printSteps(cmd *cobra.Command, host string, steps []dataset.Step) error {
	withQuery := false

	for _, s := range steps {
		if s.Query != "" {
			withQuery = true
			break
		}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "HOST %s\n", host)

	if withQuery {
		fmt.Fprintln(tw, "#\tFILTER\tSTRATEGY\tCOUNT\tQUERY")
	} else {
		fmt.Fprintln(tw, "#\tFILTER\tSTRATEGY\tCOUNT")
	}

	for i, s := range steps {
		if withQuery {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, s.Filter, s.Strategy, s.Count, s.Query)
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, s.Filter, s.Strategy, s.Count)
		}
	}

	return tw.Flush()
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/declare"
)

type validateOptions struct {
	backend string
}

func newValidateCommand() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <filters.yaml>",
		Short: "Validate a filter declaration file",
		Long: `Validate parses a filter declaration file and checks that every host and
filter is named, every referenced scope and query exists, operators and
field names are valid, and the file's version requirement is met.

With --backend sql the declarations are also checked against what the
SQLite backend can evaluate. Returns exit code 3 on failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.backend, "backend", "records", "backend to check against: records, sql")

	return cmd
}

func runValidate(cmd *cobra.Command, path string, opts *validateOptions) error {
	decls, err := config.LoadDeclarations(path)
	if err != nil {
		return &ExitError{Code: exitDeclarations, Err: err}
	}

	switch opts.backend {
	case "records":
		_, err = declare.Records(decls)
	case "sql":
		_, err = declare.SQL(decls)
	default:
		return &ExitError{Code: exitConfig, Err: fmt.Errorf("unknown backend %q (want records or sql)", opts.backend)}
	}

	if err != nil {
		return &ExitError{Code: exitDeclarations, Err: err}
	}

	filters := 0
	for _, h := range decls.Hosts {
		filters += len(h.Filters)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Validation passed: %d host(s), %d filter(s), %d scope(s), %d query(ies).\n",
		len(decls.Hosts), filters, len(decls.Scopes), len(decls.Queries))

	return err
}

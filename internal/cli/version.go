package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/version"
)

func newVersionCommand() *cobra.Command {
	var asJSON, short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the filterman version, git commit, build date, Go version and platform.

The version is what declaration files compare their "requires" constraint
against. Development builds skip that check.`,
		Args: cobra.NoArgs,
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()
			out := info.String()

			switch {
			case short:
				out = info.Version
			case asJSON:
				j, err := info.JSON()
				if err != nil {
					return err
				}

				out = j
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), out)

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "print the version number only")
	cmd.MarkFlagsMutuallyExclusive("json", "short")

	return cmd
}

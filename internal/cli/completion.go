package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/output"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for bash, zsh, fish or powershell.

Besides commands and flags, the scripts complete --host with the hosts of the
--filters file and --format with the available output formats.`,
		Example: `  source <(filterman completion bash)
  filterman completion zsh > "${fpath[1]}/_filterman"
  filterman completion fish > ~/.config/fish/completions/filterman.fish
  filterman completion powershell | Out-String | Invoke-Expression`,
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         completionShells,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
}

// completeHosts lists the hosts of the --filters file of cmd.
func completeHosts(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	path, _ := cmd.Flags().GetString("filters")
	if path == "" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	decls, err := config.LoadDeclarations(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	return decls.HostNames(), cobra.ShellCompDirectiveNoFileComp
}

func completeFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return output.DefaultRegistry().Formats(), cobra.ShellCompDirectiveNoFileComp
}

package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for coldsign.

To load completions:

Bash:
  $ source <(coldsign completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ coldsign completion bash > /etc/bash_completion.d/coldsign
  # macOS:
  $ coldsign completion bash > $(brew --prefix)/etc/bash_completion.d/coldsign

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ coldsign completion zsh > "${fpath[1]}/_coldsign"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ coldsign completion fish | source

  # To load completions for each session, execute once:
  $ coldsign completion fish > ~/.config/fish/completions/coldsign.fish

PowerShell:
  PS> coldsign completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> coldsign completion powershell > coldsign.ps1
  # and source this file from your PowerShell profile.
`,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

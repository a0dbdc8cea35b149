package commands

import (
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/internal/passphrase"
	"github.com/systmms/coldsign/pkg/signer"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var (
		account  string
		passFile string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a container passphrase in the OS keyring",
		Long: `Store a container passphrase in the operating system keyring.

Commands that need the passphrase can then fetch it with --keyring-account
instead of prompting, which keeps unattended signing runs off passphrase
files. The passphrase is asked for twice on the terminal; in scripts,
supply it with --passphrase-file or COLDSIGN_PASSPHRASE.

Examples:
  coldsign login                        # store under the default account
  coldsign login --account release-bot  # a second passphrase, separate slot
  coldsign sign --container c.json --keyring-account release-bot ...`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if account == "" {
				account = cfg.KeyringAccount()
			}

			// Never source from the keyring here: login writes the entry.
			pass, err := passphrase.ResolveNew(passphrase.Source{
				File:        passFile,
				AllowPrompt: true,
				Prompt:      "New passphrase: ",
			})
			if err != nil {
				return fail(cmd, cfg, err)
			}

			err = passphrase.Store(cfg.KeyringService(), account, pass)
			memguard.WipeBytes(pass)
			if err != nil {
				return fail(cmd, cfg, err)
			}

			cfg.Logger.Info("Passphrase stored for account '%s'", account)
			return emit(cmd, signer.Envelope{
				StatusCode: signer.StatusOK,
				Payload:    fmt.Sprintf("stored passphrase for account '%s'", account),
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Keyring account to store under (default from config, else 'default')")
	cmd.Flags().StringVar(&passFile, "passphrase-file", "", "Read the passphrase from the first line of this file")

	return cmd
}

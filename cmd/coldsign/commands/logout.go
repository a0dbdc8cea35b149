package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/internal/passphrase"
	"github.com/systmms/coldsign/pkg/signer"
)

func NewLogoutCommand(cfg *config.Config) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove a stored passphrase from the OS keyring",
		Long: `Remove a passphrase stored with 'coldsign login' from the OS keyring.

Removing an entry that does not exist succeeds, so logout is safe to run
in cleanup scripts.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if account == "" {
				account = cfg.KeyringAccount()
			}

			if err := passphrase.Delete(cfg.KeyringService(), account); err != nil {
				return fail(cmd, cfg, err)
			}

			cfg.Logger.Info("Passphrase removed for account '%s'", account)
			return emit(cmd, signer.Envelope{
				StatusCode: signer.StatusOK,
				Payload:    fmt.Sprintf("removed passphrase for account '%s'", account),
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Keyring account to remove (default from config, else 'default')")

	return cmd
}

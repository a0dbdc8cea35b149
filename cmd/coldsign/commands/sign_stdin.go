package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/pkg/signer"
)

func NewSignStdinCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign-stdin",
		Short: "Service one JSON request from standard input",
		Long: `Read one JSON request from standard input, perform the operation, write
one envelope to standard output, and exit with the envelope's status code.

This is the interface for host programs: the process is fresh for every
request, nothing survives between invocations, and secrets never appear in
the argument list. The request bytes are wiped as soon as they are parsed.

Request shape:
  {"action": "create-container", "key": "<base64>", "passphrase": "..."}
  {"action": "sign", "container": {...}, "passphrase": "...", "message": "<base64>", "mode": "signature|envelope"}
  {"action": "sign-direct", "key": "<base64>", "message": "<base64>"}
  {"action": "check"}

Example:
  echo '{"action":"check"}' | coldsign sign-stdin`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := newSigner(cfg).RunOnce(cmd.InOrStdin(), cmd.OutOrStdout())
			if code != signer.StatusOK {
				return ExitCodeError{Code: code}
			}
			return nil
		},
	}

	return cmd
}

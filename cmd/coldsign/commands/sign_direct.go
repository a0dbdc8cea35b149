package commands

import (
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/internal/crypto"
	"github.com/systmms/coldsign/pkg/signer"
)

func NewSignDirectCommand(cfg *config.Config) *cobra.Command {
	var (
		key         string
		keyFile     string
		message     string
		messageFile string
		envelope    bool
	)

	cmd := &cobra.Command{
		Use:   "sign-direct",
		Short: "Sign with a raw, unprotected key (discouraged)",
		Long: `Sign a message with a raw 32- or 64-byte key, skipping the container.

This path exists for compatibility with keys that were never sealed. It
offers none of the container's protections: the key sits unencrypted
wherever you stored it. Prefer sealing the key once with
'coldsign create-container' and signing with 'coldsign sign'.

The key bytes passed in are still wiped from this process before it exits.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyFile == "-" && messageFile == "-" {
				return fail(cmd, cfg, fmt.Errorf(
					"%w: --key-file - and --message-file - cannot both read stdin", signer.ErrInput))
			}

			warnLoosePermissions(cfg, keyFile)
			secret, err := readKey(cmd, key, keyFile)
			if err != nil {
				return fail(cmd, cfg, err)
			}
			msg, err := readMessage(cmd, message, messageFile)
			if err != nil {
				memguard.WipeBytes(secret)
				return fail(cmd, cfg, err)
			}

			mode := crypto.ModeSignature
			if envelope {
				mode = crypto.ModeEnvelope
			}

			res, err := newSigner(cfg).SignDirect(secret, msg, mode)
			if err != nil {
				return fail(cmd, cfg, describeSealError(err))
			}

			payload, err := signer.EncodeResult(res)
			if err != nil {
				return fail(cmd, cfg, err)
			}
			return emit(cmd, signer.Envelope{StatusCode: signer.StatusOK, Payload: payload})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Base58-encoded 32- or 64-byte signing key (visible in ps; prefer --key-file)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "File holding the raw 32- or 64-byte signing key, or '-' for stdin")
	cmd.Flags().StringVar(&message, "message", "", "Base64-encoded message bytes")
	cmd.Flags().StringVar(&messageFile, "message-file", "", "File holding the raw message bytes, or '-' for stdin")
	cmd.Flags().BoolVar(&envelope, "envelope", false, "Return the signed-message envelope instead of a bare signature")

	return cmd
}

package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/internal/container"
	cserrors "github.com/systmms/coldsign/internal/errors"
	"github.com/systmms/coldsign/internal/passphrase"
	"github.com/systmms/coldsign/internal/secure"
	"github.com/systmms/coldsign/pkg/signer"
)

func NewCreateContainerCommand(cfg *config.Config) *cobra.Command {
	var (
		key       string
		keyFile   string
		output    string
		passFlags passphraseFlags
	)

	cmd := &cobra.Command{
		Use:   "create-container",
		Short: "Seal a signing key inside a passphrase-protected container",
		Long: `Seal a raw Ed25519 signing key inside an encrypted container.

The key is encrypted under a key derived from your passphrase and can only
be used again by a process that knows that passphrase. The container JSON
is printed as the envelope payload and, with --output, written to a file
readable only by you. The raw key bytes are wiped from this process before
it exits.

Examples:
  # Seal a key file, prompting for a new passphrase
  coldsign create-container --key-file seed.bin --output signing.container

  # Seal a key piped in from a key generator
  head -c32 /dev/urandom | coldsign create-container --key-file - \
    --passphrase-file pass.txt

Prefer --key-file over --key: flag values are visible to every user on the
host via ps.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			warnLoosePermissions(cfg, keyFile)
			secret, err := readKey(cmd, key, keyFile)
			if err != nil {
				return fail(cmd, cfg, err)
			}

			src := passFlags.source(cfg)
			src.Prompt = "New passphrase: "
			pass, err := passphrase.ResolveNew(src)
			if err != nil {
				memguard.WipeBytes(secret)
				return fail(cmd, cfg, err)
			}

			c, err := newSigner(cfg).CreateContainer(secret, pass)
			if err != nil {
				return fail(cmd, cfg, describeSealError(err))
			}
			doc, err := container.Encode(c)
			if err != nil {
				return fail(cmd, cfg, err)
			}

			if output != "" {
				if err := os.WriteFile(output, append(doc, '\n'), 0o600); err != nil {
					return fail(cmd, cfg, cserrors.UserError{
						Message:    fmt.Sprintf("Could not write container to '%s'", output),
						Suggestion: "Check the directory exists and is writable",
						Err:        err,
					})
				}
				cfg.Logger.Info("Container written to %s", output)
			}

			return emit(cmd, signer.Envelope{StatusCode: signer.StatusOK, Payload: string(doc)})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Base58-encoded 32- or 64-byte signing key (visible in ps; prefer --key-file)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "File holding the raw 32- or 64-byte signing key, or '-' for stdin")
	cmd.Flags().StringVar(&output, "output", "", "Also write the container JSON to this path (mode 0600)")
	passFlags.register(cmd)

	return cmd
}

// describeSealError attaches guidance to the failures a user can act on.
func describeSealError(err error) error {
	if errors.Is(err, secure.ErrPinningUnavailable) {
		return cserrors.PinningError(err)
	}
	return err
}

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/internal/container"
	"github.com/systmms/coldsign/internal/crypto"
	cserrors "github.com/systmms/coldsign/internal/errors"
	"github.com/systmms/coldsign/internal/passphrase"
	"github.com/systmms/coldsign/internal/secure"
	"github.com/systmms/coldsign/pkg/signer"
)

func NewSignCommand(cfg *config.Config) *cobra.Command {
	var (
		containerPath string
		message       string
		messageFile   string
		envelope      bool
		passFlags     passphraseFlags
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message with the key sealed in a container",
		Long: `Unlock a container with your passphrase and sign a message.

The sealed key is decrypted into locked memory, used once, and wiped before
the process exits. The envelope payload holds the base58 signature and
public identity; with --envelope it also carries the full signed message.

Examples:
  # Sign a file's bytes
  coldsign sign --container signing.container --message-file release.tar.gz

  # Sign a small inline payload (base64)
  coldsign sign --container signing.container --message aGVsbG8=

  # Read the container from stdin in a pipeline
  cat signing.container | coldsign sign --container - --message aGVsbG8=`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if containerPath == "" {
				return fail(cmd, cfg, fmt.Errorf("%w: --container is required", signer.ErrInput))
			}
			if containerPath == "-" && messageFile == "-" {
				return fail(cmd, cfg, fmt.Errorf(
					"%w: --container - and --message-file - cannot both read stdin", signer.ErrInput))
			}

			warnLoosePermissions(cfg, containerPath)
			doc, err := readPath(cmd, containerPath)
			if err != nil {
				return fail(cmd, cfg, err)
			}
			msg, err := readMessage(cmd, message, messageFile)
			if err != nil {
				return fail(cmd, cfg, err)
			}
			pass, err := passphrase.Resolve(passFlags.source(cfg))
			if err != nil {
				return fail(cmd, cfg, err)
			}

			mode := crypto.ModeSignature
			if envelope {
				mode = crypto.ModeEnvelope
			}

			res, err := newSigner(cfg).Sign(doc, pass, msg, mode)
			if err != nil {
				return fail(cmd, cfg, describeSignError(containerPath, err))
			}

			payload, err := signer.EncodeResult(res)
			if err != nil {
				return fail(cmd, cfg, err)
			}
			return emit(cmd, signer.Envelope{StatusCode: signer.StatusOK, Payload: payload})
		},
	}

	cmd.Flags().StringVar(&containerPath, "container", "", "Container JSON file, or '-' for stdin")
	cmd.Flags().StringVar(&message, "message", "", "Base64-encoded message bytes")
	cmd.Flags().StringVar(&messageFile, "message-file", "", "File holding the raw message bytes, or '-' for stdin")
	cmd.Flags().BoolVar(&envelope, "envelope", false, "Return the signed-message envelope instead of a bare signature")
	passFlags.register(cmd)

	return cmd
}

// describeSignError attaches guidance to unlock failures the user can act on.
func describeSignError(source string, err error) error {
	switch {
	case errors.Is(err, crypto.ErrAuthentication):
		return cserrors.PassphraseError(err)
	case errors.Is(err, container.ErrFormat),
		errors.Is(err, container.ErrEncoding),
		errors.Is(err, crypto.ErrIdentityMismatch):
		return cserrors.ContainerError(source, err)
	case errors.Is(err, secure.ErrPinningUnavailable):
		return cserrors.PinningError(err)
	}
	return err
}

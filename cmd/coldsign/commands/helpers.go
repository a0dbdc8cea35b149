package commands

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/mr-tron/base58/base58"
	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	cserrors "github.com/systmms/coldsign/internal/errors"
	"github.com/systmms/coldsign/internal/passphrase"
	"github.com/systmms/coldsign/internal/secure"
	"github.com/systmms/coldsign/pkg/signer"
)

// ExitCodeError carries an exit code for a failure already reported through
// the envelope on stdout. The top level exits with the code and prints
// nothing further.
type ExitCodeError struct {
	Code int
}

func (e ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// newSigner builds the signer a command operates, honoring the unlocked
// memory opt-in from the environment.
func newSigner(cfg *config.Config) *signer.Signer {
	return signer.New(signer.Options{
		Policy: secure.PolicyFromEnv(),
		Logger: cfg.Logger,
	})
}

// passphraseFlags are shared by every command that unlocks or seals a
// container. A bare --passphrase flag is deliberately absent: process
// arguments are visible to other users via ps.
type passphraseFlags struct {
	file           string
	keyringAccount string
	noPrompt       bool
}

func (f *passphraseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "passphrase-file", "", "Read the passphrase from the first line of this file")
	cmd.Flags().StringVar(&f.keyringAccount, "keyring-account", "", "Use the passphrase stored under this OS keyring account")
	cmd.Flags().BoolVar(&f.noPrompt, "no-prompt", false, "Fail instead of prompting when no other source yields a passphrase")
}

// source assembles the resolution order for these flags. The keyring joins
// in only when an account is named, on the flag or in the configuration.
func (f *passphraseFlags) source(cfg *config.Config) passphrase.Source {
	account := f.keyringAccount
	if account == "" && cfg.Definition != nil {
		account = cfg.Definition.Keyring.Account
	}
	return passphrase.Source{
		File:           f.file,
		KeyringService: cfg.KeyringService(),
		KeyringAccount: account,
		AllowPrompt:    !f.noPrompt,
	}
}

// readPath returns the contents of path, with "-" meaning the command's
// standard input.
func readPath(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading standard input: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cserrors.UserError{
			Message:    fmt.Sprintf("Cannot read file '%s'", path),
			Suggestion: "Check that the path exists and is readable",
			Err:        fmt.Errorf("%w: %v", signer.ErrInput, err),
		}
	}
	return data, nil
}

// warnLoosePermissions flags secret-bearing files that other users on the
// host can access. File modes are synthetic on Windows, so the check only
// runs where they mean something.
func warnLoosePermissions(cfg *config.Config, path string) {
	if path == "" || path == "-" || runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		cfg.Logger.Warn("File '%s' is accessible by other users (mode %03o); chmod 600 is safer", path, perm)
	}
}

// readKey loads the raw signing secret from the --key or --key-file flag.
// The flag value is base58 text; the file holds the raw 32 or 64 bytes.
func readKey(cmd *cobra.Command, key, keyFile string) ([]byte, error) {
	switch {
	case key != "" && keyFile != "":
		return nil, fmt.Errorf("%w: --key and --key-file are mutually exclusive", signer.ErrInput)
	case key != "":
		raw, err := base58.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("%w: key is not base58: %v", signer.ErrBadEncoding, err)
		}
		return raw, nil
	case keyFile != "":
		return readPath(cmd, keyFile)
	}
	return nil, fmt.Errorf("%w: pass --key or --key-file", signer.ErrInput)
}

// readMessage loads the bytes to sign. The flag value is base64 text; the
// file holds the raw bytes. Neither flag set means an empty message.
func readMessage(cmd *cobra.Command, message, messageFile string) ([]byte, error) {
	switch {
	case message != "" && messageFile != "":
		return nil, fmt.Errorf("%w: --message and --message-file are mutually exclusive", signer.ErrInput)
	case message != "":
		raw, err := base64.StdEncoding.DecodeString(message)
		if err != nil {
			return nil, fmt.Errorf("%w: message is not base64: %v", signer.ErrBadEncoding, err)
		}
		return raw, nil
	case messageFile != "":
		return readPath(cmd, messageFile)
	}
	return nil, nil
}

// emit prints the envelope on stdout, newline-terminated. A non-zero status
// becomes the process exit code.
func emit(cmd *cobra.Command, env signer.Envelope) error {
	out, err := json.Marshal(env)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)

	if env.StatusCode != signer.StatusOK {
		return ExitCodeError{Code: env.StatusCode}
	}
	return nil
}

// fail reports err on both channels: rich guidance on stderr, a compact
// envelope on stdout.
func fail(cmd *cobra.Command, cfg *config.Config, err error) error {
	if cfg.Logger != nil {
		cfg.Logger.Error("%v", cserrors.SimplifyError(err))
	}
	return emit(cmd, signer.Envelope{
		StatusCode: signer.CodeFor(err),
		Payload:    payloadText(err),
	})
}

// payloadText is the machine-facing form of an error. Suggestions stay on
// stderr; the envelope carries the underlying cause.
func payloadText(err error) string {
	var ue cserrors.UserError
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return err.Error()
}

// Package passphrase resolves the container passphrase from the sources the
// CLI supports, in fixed order: passphrase file, environment variable, OS
// keyring, interactive terminal prompt. The keyring is consulted only when an
// account was named explicitly, so scripted runs never trigger an unexpected
// keyring unlock dialog.
package passphrase

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	cserrors "github.com/systmms/coldsign/internal/errors"
)

// EnvPassphrase supplies the passphrase through the environment.
const EnvPassphrase = "COLDSIGN_PASSPHRASE"

var (
	// ErrNoSource reports that no configured source produced a passphrase.
	ErrNoSource = errors.New("no passphrase source available")
	// ErrNotText reports passphrase bytes that are not valid UTF-8.
	ErrNotText = errors.New("passphrase is not valid UTF-8 text")
)

// Source describes where to look for a passphrase.
type Source struct {
	// File is a path whose first line is the passphrase.
	File string
	// KeyringService and KeyringAccount select an OS keyring entry. The
	// keyring is skipped while KeyringAccount is empty.
	KeyringService string
	KeyringAccount string
	// AllowPrompt permits asking on the terminal as a last resort.
	AllowPrompt bool
	// Prompt overrides the default prompt text.
	Prompt string
}

// Resolve walks the sources in order and returns the first passphrase found.
// The caller owns the returned bytes and wipes them after use.
func Resolve(src Source) ([]byte, error) {
	if src.File != "" {
		return fromFile(src.File)
	}

	if v := os.Getenv(EnvPassphrase); v != "" {
		return checkText([]byte(v))
	}

	if src.KeyringAccount != "" {
		return fromKeyring(src.KeyringService, src.KeyringAccount)
	}

	if src.AllowPrompt && term.IsTerminal(int(os.Stdin.Fd())) {
		return prompt(src.Prompt)
	}

	return nil, cserrors.UserError{
		Message:    "No passphrase available",
		Suggestion: "Pass --passphrase-file, set " + EnvPassphrase + ", or store one with 'coldsign login'",
		Err:        ErrNoSource,
	}
}

// ResolveNew is Resolve for enrollment flows. A passphrase taken on the
// terminal is asked for twice and both entries must match; file, environment,
// and keyring sources need no confirmation.
func ResolveNew(src Source) ([]byte, error) {
	if src.File != "" || os.Getenv(EnvPassphrase) != "" || src.KeyringAccount != "" {
		return Resolve(src)
	}
	if !src.AllowPrompt || !term.IsTerminal(int(os.Stdin.Fd())) {
		return Resolve(src)
	}

	first, err := prompt(src.Prompt)
	if err != nil {
		return nil, err
	}
	again, err := prompt("Confirm passphrase: ")
	if err != nil {
		memguard.WipeBytes(first)
		return nil, err
	}
	match := bytes.Equal(first, again)
	memguard.WipeBytes(again)
	if !match {
		memguard.WipeBytes(first)
		return nil, cserrors.UserError{
			Message:    "Passphrases do not match",
			Suggestion: "Run the command again and enter the same passphrase twice",
		}
	}
	return first, nil
}

// fromFile reads the first line of path as the passphrase. Only the trailing
// line break is stripped; interior and leading whitespace is significant.
func fromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cserrors.UserError{
			Message:    fmt.Sprintf("Could not read passphrase file '%s'", path),
			Suggestion: "Check the path and file permissions",
			Err:        err,
		}
	}

	line := string(data)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSuffix(line, "\r")

	if line == "" {
		return nil, cserrors.UserError{
			Message:    fmt.Sprintf("Passphrase file '%s' is empty", path),
			Suggestion: "Write the passphrase on the first line of the file",
		}
	}
	return checkText([]byte(line))
}

// fromKeyring fetches a stored passphrase from the OS keyring. A missing
// entry counts as having no source at all, not as a keyring fault.
func fromKeyring(service, account string) ([]byte, error) {
	value, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, cserrors.UserError{
			Message:    fmt.Sprintf("No passphrase stored for account '%s'", account),
			Suggestion: fmt.Sprintf("Store one first: 'coldsign login --account %s'", account),
			Err:        fmt.Errorf("%w: keyring has no entry for account '%s'", ErrNoSource, account),
		}
	}
	if err != nil {
		return nil, cserrors.KeyringError(account, err)
	}
	return checkText([]byte(value))
}

// prompt asks for the passphrase on the controlling terminal without echo
func prompt(label string) ([]byte, error) {
	if label == "" {
		label = "Passphrase: "
	}
	fmt.Fprint(os.Stderr, label)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if len(pass) == 0 {
		return nil, errors.New("empty passphrase entered")
	}
	return checkText(pass)
}

func checkText(pass []byte) ([]byte, error) {
	if !utf8.Valid(pass) {
		return nil, ErrNotText
	}
	return pass, nil
}

// Store saves a passphrase in the OS keyring.
func Store(service, account string, pass []byte) error {
	if err := keyring.Set(service, account, string(pass)); err != nil {
		return cserrors.KeyringError(account, err)
	}
	return nil
}

// Delete removes a stored passphrase from the OS keyring. Deleting an entry
// that does not exist is not an error, so logout stays idempotent.
func Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return cserrors.KeyringError(account, err)
	}
	return nil
}

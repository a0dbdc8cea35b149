package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// PassphraseError wraps a failed container unlock. Decryption cannot tell a
// wrong passphrase from a tampered container, so the hint covers both.
func PassphraseError(err error) error {
	return UserError{
		Message:    "Could not unlock the container",
		Suggestion: "Verify the passphrase; a wrong passphrase and a modified container file fail the same way",
		Err:        err,
	}
}

// ContainerError enhances container parse and validation errors with context
func ContainerError(source string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("Invalid container %s", source),
		Suggestion: getContainerSuggestion(err),
		Err:        err,
	}
}

// getContainerSuggestion returns helpful suggestions based on the parse failure
func getContainerSuggestion(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	if strings.Contains(errStr, "version") {
		return "The container was written by a different format version. Recreate it with 'coldsign create-container'"
	}
	if strings.Contains(errStr, "does not match") {
		return "The recorded public identity does not belong to the sealed key. The container is corrupted or was assembled from mismatched parts"
	}
	if strings.Contains(errStr, "base64") || strings.Contains(errStr, "base58") {
		return "A field holds invalid encoded data. The file may be truncated or hand-edited"
	}
	if strings.Contains(errStr, "json") || strings.Contains(errStr, "JSON") {
		return "The file is not valid JSON. Recreate it with 'coldsign create-container'"
	}
	if strings.Contains(errStr, "no such file") {
		return "Verify the container path exists and is spelled correctly"
	}

	return "Recreate the container with 'coldsign create-container'"
}

// PinningError explains a failed locked-memory acquisition
func PinningError(err error) error {
	return UserError{
		Message:    "Locked memory is unavailable on this host",
		Suggestion: "Raise the memlock limit (ulimit -l) or set COLDSIGN_ALLOW_UNLOCKED_MEMORY=1 to accept unpinned buffers",
		Err:        err,
	}
}

// KeyringError enhances OS keyring failures with context
func KeyringError(account string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("Keyring lookup failed for account '%s'", account),
		Suggestion: getKeyringSuggestion(account, err),
		Err:        err,
	}
}

// getKeyringSuggestion returns helpful suggestions based on the keyring failure
func getKeyringSuggestion(account string, err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	if strings.Contains(errStr, "not found") {
		return fmt.Sprintf("Store a passphrase first: 'coldsign login --account %s'", account)
	}
	if strings.Contains(errStr, "dbus") || strings.Contains(errStr, "secret service") {
		return "The desktop secret service is unreachable. Use --passphrase-file or COLDSIGN_PASSPHRASE instead"
	}

	return "Use --passphrase-file or COLDSIGN_PASSPHRASE if no keyring is available"
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	// Simplify common technical errors
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}

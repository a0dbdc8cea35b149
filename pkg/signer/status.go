package signer

import (
	"errors"

	"github.com/systmms/coldsign/internal/container"
	"github.com/systmms/coldsign/internal/passphrase"
)

// Status codes carried in every result envelope. The process interface also
// uses them as exit codes, so they stay small and stable.
const (
	// StatusOK reports a completed operation.
	StatusOK = 0
	// StatusMissingInput reports an absent required input or an unknown
	// action or mode.
	StatusMissingInput = 1
	// StatusBadText reports input bytes that are not valid UTF-8 text.
	StatusBadText = 2
	// StatusBadEncoding reports a field whose base64 or base58 payload does
	// not decode.
	StatusBadEncoding = 3
	// StatusCrypto reports a failed unlock, identity mismatch, unusable
	// secret, or exhausted protected memory.
	StatusCrypto = 4
	// StatusSerialization reports malformed JSON, a failed schema check, an
	// unsupported version, or a field length violation.
	StatusSerialization = 5
)

var (
	// ErrInput reports a request missing a required field or naming an
	// unknown action or mode.
	ErrInput = errors.New("invalid request")
	// ErrBadText reports request bytes that are not valid UTF-8 text.
	ErrBadText = errors.New("request is not valid UTF-8 text")
	// ErrBadEncoding reports a request field whose base64 payload does not
	// decode.
	ErrBadEncoding = errors.New("request field encoding invalid")
)

// CodeFor maps an operation error to its envelope status code.
func CodeFor(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInput), errors.Is(err, passphrase.ErrNoSource):
		return StatusMissingInput
	case errors.Is(err, ErrBadText), errors.Is(err, passphrase.ErrNotText):
		return StatusBadText
	case errors.Is(err, ErrBadEncoding), errors.Is(err, container.ErrEncoding):
		return StatusBadEncoding
	case errors.Is(err, container.ErrFormat):
		return StatusSerialization
	}
	// Authentication failures, identity mismatches, secret length errors,
	// and resource exhaustion all land in the crypto class, as does any
	// fault with no more specific home.
	return StatusCrypto
}

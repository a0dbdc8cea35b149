// Package container reads and writes the encrypted key container document.
//
// A container is a small JSON object carrying everything needed to recover a
// signing key from a passphrase: the format version, the KDF salt, the AEAD
// nonce, the sealed secret, and optionally the expected public identity.
// Binary fields travel base64; the public identity travels base58.
package container

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58/base58"

	"github.com/systmms/coldsign/internal/crypto"
)

// Version is the only container format this build reads and writes.
const Version = 1

var (
	// ErrEncoding reports a field whose base64 or base58 payload does not decode.
	ErrEncoding = errors.New("field encoding invalid")
	// ErrFormat reports JSON, schema, version, or length violations.
	ErrFormat = errors.New("container format invalid")
)

// Container is the decoded form of an encrypted key container.
type Container struct {
	Version        int
	Salt           []byte
	Nonce          []byte
	Ciphertext     []byte
	PublicIdentity []byte
}

type wireContainer struct {
	Version        int    `json:"version"`
	Salt           string `json:"salt"`
	Nonce          string `json:"nonce"`
	Ciphertext     string `json:"ciphertext"`
	PublicIdentity string `json:"public_identity,omitempty"`
}

// Decode parses and validates a container document. The schema check runs
// before any field decoding so shape errors surface with the field named.
func Decode(raw []byte) (*Container, error) {
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var w wireContainer
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	c := &Container{Version: w.Version}
	var err error
	if c.Salt, err = decodeBase64Field("salt", w.Salt); err != nil {
		return nil, err
	}
	if c.Nonce, err = decodeBase64Field("nonce", w.Nonce); err != nil {
		return nil, err
	}
	if c.Ciphertext, err = decodeBase64Field("ciphertext", w.Ciphertext); err != nil {
		return nil, err
	}
	if w.PublicIdentity != "" {
		if c.PublicIdentity, err = base58.Decode(w.PublicIdentity); err != nil {
			return nil, fmt.Errorf("%w: public_identity is not base58: %v", ErrEncoding, err)
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode renders c into its canonical JSON document. The output is
// deterministic: fields appear in declaration order with no extra whitespace,
// so equal containers always serialize to equal bytes.
func Encode(c *Container) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	w := wireContainer{
		Version:    c.Version,
		Salt:       base64.StdEncoding.EncodeToString(c.Salt),
		Nonce:      base64.StdEncoding.EncodeToString(c.Nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(c.Ciphertext),
	}
	if len(c.PublicIdentity) > 0 {
		w.PublicIdentity = base58.Encode(c.PublicIdentity)
	}
	return json.Marshal(w)
}

func decodeBase64Field(name, value string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64: %v", ErrEncoding, name, err)
	}
	return raw, nil
}

func (c *Container) validate() error {
	if c.Version != Version {
		return fmt.Errorf("%w: unsupported container version %d", ErrFormat, c.Version)
	}
	if len(c.Salt) != crypto.SaltLen {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrFormat, crypto.SaltLen, len(c.Salt))
	}
	if len(c.Nonce) != crypto.NonceLen {
		return fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrFormat, crypto.NonceLen, len(c.Nonce))
	}
	if len(c.Ciphertext) <= crypto.TagLen {
		return fmt.Errorf("%w: ciphertext must exceed the %d-byte tag, got %d bytes", ErrFormat, crypto.TagLen, len(c.Ciphertext))
	}
	if len(c.PublicIdentity) != 0 && len(c.PublicIdentity) != crypto.IdentityLen {
		return fmt.Errorf("%w: public_identity must be %d bytes, got %d", ErrFormat, crypto.IdentityLen, len(c.PublicIdentity))
	}
	return nil
}

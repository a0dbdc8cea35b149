package crypto

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/systmms/coldsign/internal/secure"
)

const (
	// SeedLen is the Ed25519 seed taken from the head of a decrypted secret.
	SeedLen = ed25519.SeedSize
	// SignatureLen is the fixed Ed25519 signature size.
	SignatureLen = ed25519.SignatureSize
	// IdentityLen is the Ed25519 public key size used as a public identity.
	IdentityLen = ed25519.PublicKeySize
	// EnvelopePrefix tags signed envelopes so a raw signature and an
	// envelope can never be confused on the wire.
	EnvelopePrefix byte = 0x01
)

var (
	// ErrSecretLength reports a decrypted secret of unusable size.
	ErrSecretLength = errors.New("decrypted secret must be 32 or 64 bytes")
	// ErrIdentityMismatch reports a container whose recorded public identity
	// does not match the key actually derived from its secret.
	ErrIdentityMismatch = errors.New("public identity does not match the decrypted key")
)

// Mode selects the signing output layout.
type Mode int

const (
	// ModeSignature returns the detached 64-byte signature alone.
	ModeSignature Mode = iota
	// ModeEnvelope returns a self-contained signed message: the envelope
	// prefix byte, then the signature, then the message.
	ModeEnvelope
)

// Keypair holds a derived signing key in a protected buffer together with
// its public half. The public half is not secret and lives on the heap.
type Keypair struct {
	priv   *secure.Buffer
	Public ed25519.PublicKey
}

// NewKeypair expands the leading 32 bytes of secret into an Ed25519 keypair.
// Secrets are 32 or 64 bytes; the tail of a 64-byte secret is reserved and
// ignored. The secret buffer stays owned by the caller.
func NewKeypair(secret *secure.Buffer, pol secure.Policy) (*Keypair, error) {
	switch secret.Len() {
	case SeedLen, 2 * SeedLen:
	default:
		return nil, ErrSecretLength
	}
	priv := ed25519.NewKeyFromSeed(secret.Bytes()[:SeedLen])
	pub := append(ed25519.PublicKey(nil), priv[SeedLen:]...)
	buf, err := secure.FromBytes(priv, pol)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: buf, Public: pub}, nil
}

// CheckIdentity compares an expected public identity against the derived
// public key. An empty expectation passes: containers may omit the identity
// and rely on the key alone.
func (k *Keypair) CheckIdentity(expected []byte) error {
	if len(expected) == 0 {
		return nil
	}
	if !bytes.Equal(expected, k.Public) {
		return ErrIdentityMismatch
	}
	return nil
}

// Sign produces a deterministic Ed25519 signature over message. Ed25519
// derives its own per-message nonce, so equal inputs always yield equal
// signatures and no randomness can leak the key.
func (k *Keypair) Sign(message []byte, mode Mode) ([]byte, error) {
	raw := k.priv.Bytes()
	if raw == nil {
		return nil, errors.New("signing key already released")
	}
	sig := ed25519.Sign(ed25519.PrivateKey(raw), message)

	switch mode {
	case ModeSignature:
		return sig, nil
	case ModeEnvelope:
		out := make([]byte, 0, 1+len(sig)+len(message))
		out = append(out, EnvelopePrefix)
		out = append(out, sig...)
		out = append(out, message...)
		return out, nil
	}
	return nil, fmt.Errorf("unknown signing mode %d", mode)
}

// Release wipes the private half. Safe to call more than once.
func (k *Keypair) Release() {
	if k == nil {
		return
	}
	k.priv.Release()
}

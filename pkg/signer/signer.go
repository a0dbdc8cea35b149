// Package signer exposes the key-signing subsystem behind one small API: a
// typed surface for Go callers and a request/envelope surface for host
// processes. Every operation derives, uses, and destroys its key material
// within the call; nothing secret survives a return.
package signer

import (
	"runtime"

	"github.com/awnumar/memguard"

	"github.com/systmms/coldsign/internal/container"
	"github.com/systmms/coldsign/internal/crypto"
	"github.com/systmms/coldsign/internal/logging"
	"github.com/systmms/coldsign/internal/secure"
)

// Options configure a Signer.
type Options struct {
	// Policy governs what happens when locked memory is unavailable. The
	// zero value refuses to run with unpinned buffers.
	Policy secure.Policy
	// Logger receives degraded-mode warnings. May be nil.
	Logger *logging.Logger
}

// Signer runs signing operations under one pinning policy. The zero value is
// not usable; construct with New.
type Signer struct {
	pol    secure.Policy
	logger *logging.Logger
}

// New creates a signer.
func New(opts Options) *Signer {
	return &Signer{pol: opts.Policy, logger: opts.Logger}
}

// Result carries one signing outcome.
type Result struct {
	// Signature is the detached 64-byte Ed25519 signature.
	Signature []byte
	// PublicIdentity is the 32-byte public key the signature verifies under.
	PublicIdentity []byte
	// SignedMessage is the self-contained envelope (prefix, signature,
	// message); set only in envelope mode.
	SignedMessage []byte
}

// CheckReport describes the host capabilities relevant to this signer.
type CheckReport struct {
	MemoryLocking bool   `json:"memory_locking"`
	Platform      string `json:"platform"`
	Arch          string `json:"arch"`
	MemlockSoft   uint64 `json:"memlock_soft_bytes,omitempty"`
	MemlockHard   uint64 `json:"memlock_hard_bytes,omitempty"`
}

// warnIfUnpinned surfaces degraded-mode operation once per process.
func (s *Signer) warnIfUnpinned() {
	if s.pol == secure.PolicyPermissive && !secure.CanPin() && s.logger != nil {
		s.logger.WarnOnce("unlocked-memory",
			"Memory locking is unavailable; secret buffers may be written to swap")
	}
}

// CreateContainer seals a 32- or 64-byte secret under a passphrase and
// returns the container recording everything needed to unlock it again. Both
// secret and passphrase are consumed: their bytes are wiped before return.
func (s *Signer) CreateContainer(secret, pass []byte) (*container.Container, error) {
	defer memguard.WipeBytes(pass)
	s.warnIfUnpinned()

	switch len(secret) {
	case crypto.SeedLen, 2 * crypto.SeedLen:
	default:
		memguard.WipeBytes(secret)
		return nil, crypto.ErrSecretLength
	}

	secBuf, err := secure.FromBytes(secret, s.pol)
	if err != nil {
		return nil, err
	}
	defer secBuf.Release()

	kp, err := crypto.NewKeypair(secBuf, s.pol)
	if err != nil {
		return nil, err
	}
	defer kp.Release()

	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	params, err := crypto.ParamsForVersion(container.Version)
	if err != nil {
		return nil, err
	}

	key, err := crypto.DeriveKey(pass, salt, params, s.pol)
	if err != nil {
		return nil, err
	}
	nonce, ct, err := crypto.Seal(key, secBuf.Bytes())
	key.Release()
	if err != nil {
		return nil, err
	}

	return &container.Container{
		Version:        container.Version,
		Salt:           salt,
		Nonce:          nonce,
		Ciphertext:     ct,
		PublicIdentity: append([]byte(nil), kp.Public...),
	}, nil
}

// Sign unlocks a container document with a passphrase and signs message.
// The passphrase is consumed: its bytes are wiped before return. The derived
// key, the decrypted secret, and the expanded private key each live only for
// the stage that needs them.
func (s *Signer) Sign(doc, pass, message []byte, mode crypto.Mode) (*Result, error) {
	defer memguard.WipeBytes(pass)
	s.warnIfUnpinned()

	c, err := container.Decode(doc)
	if err != nil {
		return nil, err
	}
	params, err := crypto.ParamsForVersion(c.Version)
	if err != nil {
		return nil, err
	}

	key, err := crypto.DeriveKey(pass, c.Salt, params, s.pol)
	if err != nil {
		return nil, err
	}
	secret, err := crypto.Open(key, c.Nonce, c.Ciphertext, s.pol)
	key.Release()
	if err != nil {
		return nil, err
	}

	return s.signWithSecret(secret, c.PublicIdentity, message, mode)
}

// SignDirect signs with a bare 32- or 64-byte secret, skipping the container
// unlock. The secret is consumed: its bytes are wiped before return.
func (s *Signer) SignDirect(secret, message []byte, mode crypto.Mode) (*Result, error) {
	s.warnIfUnpinned()

	switch len(secret) {
	case crypto.SeedLen, 2 * crypto.SeedLen:
	default:
		memguard.WipeBytes(secret)
		return nil, crypto.ErrSecretLength
	}

	secBuf, err := secure.FromBytes(secret, s.pol)
	if err != nil {
		return nil, err
	}
	return s.signWithSecret(secBuf, nil, message, mode)
}

// signWithSecret consumes the secret buffer, checks the expected identity
// when one is present, and produces the signature.
func (s *Signer) signWithSecret(secret *secure.Buffer, expectIdentity, message []byte, mode crypto.Mode) (*Result, error) {
	kp, err := crypto.NewKeypair(secret, s.pol)
	secret.Release()
	if err != nil {
		return nil, err
	}
	defer kp.Release()

	if err := kp.CheckIdentity(expectIdentity); err != nil {
		return nil, err
	}

	out, err := kp.Sign(message, mode)
	if err != nil {
		return nil, err
	}

	res := &Result{PublicIdentity: append([]byte(nil), kp.Public...)}
	switch mode {
	case crypto.ModeEnvelope:
		res.Signature = append([]byte(nil), out[1:1+crypto.SignatureLen]...)
		res.SignedMessage = out
	default:
		res.Signature = out
	}
	return res, nil
}

// Check reports whether this host can pin memory, plus the platform facts
// that explain why it might not. It is read-only and never changes signer
// behavior.
func (s *Signer) Check() CheckReport {
	soft, hard := memlockLimit()
	return CheckReport{
		MemoryLocking: secure.CanPin(),
		Platform:      runtime.GOOS,
		Arch:          runtime.GOARCH,
		MemlockSoft:   soft,
		MemlockHard:   hard,
	}
}

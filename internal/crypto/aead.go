package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/systmms/coldsign/internal/secure"
)

const (
	// KeyLen is the AEAD key size; the cipher is always AES-256-GCM.
	KeyLen = 32
	// NonceLen is the GCM nonce size carried in every container.
	NonceLen = 12
	// TagLen is the GCM authentication tag appended to every ciphertext.
	TagLen = 16
)

// ErrAuthentication reports an AEAD open that failed its tag check. A wrong
// passphrase and a tampered container are indistinguishable at this layer.
var ErrAuthentication = errors.New("authentication failed")

func newGCM(key *secure.Buffer) (cipher.AEAD, error) {
	if key.Len() != KeyLen {
		return nil, fmt.Errorf("aead key must be %d bytes, got %d", KeyLen, key.Len())
	}
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under key with a fresh random nonce. The returned
// nonce and ciphertext go into the container verbatim.
func Seal(key *secure.Buffer, plaintext []byte) (nonce, ciphertext []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("drawing nonce: %w", err)
	}
	return nonce, gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext into a protected buffer sized exactly for the
// plaintext, so the secret bytes never touch the ordinary heap. On a failed
// tag check the buffer is released before the error returns.
func Open(key *secure.Buffer, nonce, ciphertext []byte, pol secure.Policy) (*secure.Buffer, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceLen {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceLen, len(nonce))
	}
	if len(ciphertext) <= TagLen {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(ciphertext))
	}

	buf, err := secure.Acquire(len(ciphertext)-TagLen, pol)
	if err != nil {
		return nil, err
	}
	// Decrypt in place: the destination has exactly plaintext capacity, so
	// Open appends into the protected region without reallocating.
	if _, err := gcm.Open(buf.Bytes()[:0], nonce, ciphertext, nil); err != nil {
		buf.Release()
		return nil, ErrAuthentication
	}
	return buf, nil
}

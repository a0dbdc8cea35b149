package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/systmms/coldsign/internal/secure"
)

// SaltLen is the per-container KDF salt size.
const SaltLen = 32

// KDFParams fixes the Argon2id cost for one container format version.
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// ParamsForVersion returns the key derivation cost pinned to a container
// format version. Costs never float with host hardware; raising them
// requires a new format version so existing containers keep unlocking.
func ParamsForVersion(version int) (KDFParams, error) {
	switch version {
	case 1:
		return KDFParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32}, nil
	}
	return KDFParams{}, fmt.Errorf("no key derivation parameters for container version %d", version)
}

// NewSalt draws a fresh random salt for a new container.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("drawing salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase and salt into an AEAD key held in a
// protected buffer. The KDF's transient output is wiped on the way in.
func DeriveKey(passphrase, salt []byte, p KDFParams, pol secure.Policy) (*secure.Buffer, error) {
	key := argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)
	return secure.FromBytes(key, pol)
}

package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/systmms/coldsign/internal/secure"
)

func testKey(t *testing.T, fill byte) *secure.Buffer {
	t.Helper()
	key, err := secure.FromBytes(bytes.Repeat([]byte{fill}, KeyLen), secure.PolicyPermissive)
	if err != nil {
		t.Fatalf("building test key: %v", err)
	}
	t.Cleanup(key.Release)
	return key
}

func TestSealOpenRoundtrip(t *testing.T) {
	t.Parallel()

	key := testKey(t, 0x11)
	plaintext := []byte("thirty-two bytes of seed material")

	nonce, ct, err := Seal(key, plaintext)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if len(nonce) != NonceLen {
		t.Fatalf("nonce length = %d, want %d", len(nonce), NonceLen)
	}
	if len(ct) != len(plaintext)+TagLen {
		t.Fatalf("ciphertext length = %d, want %d", len(ct), len(plaintext)+TagLen)
	}

	buf, err := Open(key, nonce, ct, secure.PolicyPermissive)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer buf.Release()

	if !bytes.Equal(buf.Bytes(), plaintext) {
		t.Error("roundtrip lost the plaintext")
	}
}

func TestSealDrawsFreshNonces(t *testing.T) {
	t.Parallel()

	key := testKey(t, 0x22)
	plaintext := []byte("same plaintext both times")

	n1, c1, err := Seal(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	n2, c2, err := Seal(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(n1, n2) {
		t.Error("two seals reused a nonce")
	}
	if bytes.Equal(c1, c2) {
		t.Error("two seals of the same plaintext produced identical ciphertext")
	}
}

func TestOpenWrongKey(t *testing.T) {
	t.Parallel()

	key := testKey(t, 0x33)
	wrong := testKey(t, 0x34)

	nonce, ct, err := Seal(key, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Open(wrong, nonce, ct, secure.PolicyPermissive); !errors.Is(err, ErrAuthentication) {
		t.Errorf("Open(wrong key) error = %v, want ErrAuthentication", err)
	}
}

func TestOpenTamperedInput(t *testing.T) {
	t.Parallel()

	key := testKey(t, 0x44)
	nonce, ct, err := Seal(key, []byte("tamper target plaintext"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		mod  func(nonce, ct []byte)
	}{
		{"first ciphertext byte", func(_, ct []byte) { ct[0] ^= 0x01 }},
		{"middle ciphertext byte", func(_, ct []byte) { ct[len(ct)/2] ^= 0x80 }},
		{"tag byte", func(_, ct []byte) { ct[len(ct)-1] ^= 0x01 }},
		{"nonce byte", func(nonce, _ []byte) { nonce[3] ^= 0x10 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := append([]byte(nil), nonce...)
			c := append([]byte(nil), ct...)
			tt.mod(n, c)

			if _, err := Open(key, n, c, secure.PolicyPermissive); !errors.Is(err, ErrAuthentication) {
				t.Errorf("Open(tampered) error = %v, want ErrAuthentication", err)
			}
		})
	}
}

func TestOpenRejectsBadShapes(t *testing.T) {
	t.Parallel()

	key := testKey(t, 0x55)
	nonce, ct, err := Seal(key, []byte("shaped plaintext"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Open(key, nonce[:NonceLen-1], ct, secure.PolicyPermissive); err == nil {
		t.Error("short nonce accepted")
	}
	if _, err := Open(key, append(append([]byte(nil), nonce...), 0x00), ct, secure.PolicyPermissive); err == nil {
		t.Error("long nonce accepted")
	}
	if _, err := Open(key, nonce, ct[:TagLen], secure.PolicyPermissive); err == nil {
		t.Error("tag-only ciphertext accepted")
	}
	if _, err := Open(key, nonce, nil, secure.PolicyPermissive); err == nil {
		t.Error("empty ciphertext accepted")
	}
}

func TestKeySizeEnforced(t *testing.T) {
	t.Parallel()

	short, err := secure.FromBytes(bytes.Repeat([]byte{0x66}, 16), secure.PolicyPermissive)
	if err != nil {
		t.Fatal(err)
	}
	defer short.Release()

	if _, _, err := Seal(short, []byte("x")); err == nil {
		t.Error("Seal accepted a 16-byte key")
	}
	if _, err := Open(short, make([]byte, NonceLen), make([]byte, TagLen+1), secure.PolicyPermissive); err == nil {
		t.Error("Open accepted a 16-byte key")
	}
}

package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// Replaceable for testing error paths.
var randReader io.Reader = rand.Reader

// FieldCipher encrypts and decrypts single password fields with AES-256-GCM.
type FieldCipher struct {
	key  []byte
	aead cipher.AEAD
}

// NewFieldCipher builds a cipher around a copy of key, which must be KeySize bytes.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: expected %d bytes, got %d bytes", KeySize, len(key))
	}

	owned := make([]byte, KeySize)
	copy(owned, key)
	// Best effort; the key is still zeroed on Destroy if locking is unavailable.
	_ = lockMemory(owned)

	block, err := aes.NewCipher(owned)
	if err != nil {
		Zero(owned)
		return nil, fmt.Errorf("creating aes block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		Zero(owned)
		return nil, fmt.Errorf("creating gcm cipher: %w", err)
	}

	return &FieldCipher{key: owned, aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *FieldCipher) Encrypt(plaintext []byte) (Bundle, error) {
	if c == nil || c.aead == nil {
		return Bundle{}, kerrors.ErrNotAuthenticated
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return Bundle{}, fmt.Errorf("generating nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - c.aead.Overhead()

	return Bundle{
		Ciphertext: sealed[:split],
		Nonce:      nonce,
		Tag:        sealed[split:],
	}, nil
}

// Decrypt opens a bundle. Any verification problem, including a nonce or tag
// of the wrong size, is ErrAuthenticationFailure and no plaintext is returned.
func (c *FieldCipher) Decrypt(b Bundle) ([]byte, error) {
	if c == nil || c.aead == nil {
		return nil, kerrors.ErrNotAuthenticated
	}
	if len(b.Nonce) != c.aead.NonceSize() || len(b.Tag) != c.aead.Overhead() {
		return nil, kerrors.ErrAuthenticationFailure
	}

	sealed := make([]byte, 0, len(b.Ciphertext)+len(b.Tag))
	sealed = append(sealed, b.Ciphertext...)
	sealed = append(sealed, b.Tag...)

	plaintext, err := c.aead.Open(nil, b.Nonce, sealed, nil)
	if err != nil {
		return nil, kerrors.ErrAuthenticationFailure
	}
	return plaintext, nil
}

// EncryptString encrypts s and returns the serialized bundle.
func (c *FieldCipher) EncryptString(s string) (string, error) {
	b, err := c.Encrypt([]byte(s))
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// DecryptString parses a serialized bundle and decrypts it.
func (c *FieldCipher) DecryptString(s string) (string, error) {
	b, err := ParseBundle(s)
	if err != nil {
		return "", err
	}
	plaintext, err := c.Decrypt(b)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Destroy zeroes the key. The cipher is unusable afterwards.
func (c *FieldCipher) Destroy() {
	if c == nil || c.key == nil {
		return
	}
	Zero(c.key)
	_ = unlockMemory(c.key)
	c.key = nil
	c.aead = nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

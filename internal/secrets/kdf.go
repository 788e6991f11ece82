package secrets

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// DefaultIterations is the PBKDF2-SHA256 work factor for vault keys.
	// Changing it changes every derived key, so existing vaults would no longer open.
	DefaultIterations = 600_000
)

// applicationSalt is shared by every vault. The key never leaves memory and
// is re-derived on each login, so the salt only has to be stable.
var applicationSalt = []byte("kaitiaki/vault-key/v1")

// KDF derives the symmetric field key from the master passphrase.
type KDF struct {
	Iterations int
	Salt       []byte
}

// DefaultKDF is the derivation used for real vaults.
var DefaultKDF = KDF{Iterations: DefaultIterations, Salt: applicationSalt}

// Derive returns a KeySize-byte key. The same passphrase always yields the same key.
func (k KDF) Derive(passphrase []byte) []byte {
	iterations := k.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	salt := k.Salt
	if len(salt) == 0 {
		salt = applicationSalt
	}
	return pbkdf2.Key(passphrase, salt, iterations, KeySize, sha256.New)
}

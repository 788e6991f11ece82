package secrets

import (
	"crypto/md5"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm identifies how a stored master-key hash was produced.
// A stored hash is the lowercase hex digest followed by the algorithm suffix.
type HashAlgorithm int

const (
	HashMD5 HashAlgorithm = iota + 1
	HashSHA512
	HashBLAKE2b
)

// StrongestHashAlgorithm is used for every hash written by this tool.
const StrongestHashAlgorithm = HashBLAKE2b

// hashAlgorithms is ordered for identification. No suffix is a suffix of another.
var hashAlgorithms = []HashAlgorithm{HashBLAKE2b, HashSHA512, HashMD5}

func (a HashAlgorithm) String() string {
	switch a {
	case HashMD5:
		return "md5"
	case HashSHA512:
		return "sha512"
	case HashBLAKE2b:
		return "blake2b"
	default:
		return fmt.Sprintf("HashAlgorithm(%d)", int(a))
	}
}

// Suffix is the tag appended to the hex digest.
func (a HashAlgorithm) Suffix() string {
	switch a {
	case HashMD5:
		return "1sk"
	case HashSHA512:
		return "7wpkgh"
	case HashBLAKE2b:
		return "q0pzth"
	default:
		return ""
	}
}

// Legacy reports whether hashes in this format should be upgraded on next login.
func (a HashAlgorithm) Legacy() bool {
	return a != StrongestHashAlgorithm
}

// Sum returns the hex digest of data without the suffix.
func (a HashAlgorithm) Sum(data []byte) (string, error) {
	switch a {
	case HashMD5:
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case HashSHA512:
		sum := sha512.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	case HashBLAKE2b:
		sum := blake2b.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("%w: %s", kerrors.ErrUnknownHashFormat, a)
	}
}

// HashPassphrase returns the tagged hash of passphrase using StrongestHashAlgorithm.
func HashPassphrase(passphrase []byte) string {
	return hashWith(StrongestHashAlgorithm, passphrase)
}

func hashWith(a HashAlgorithm, passphrase []byte) string {
	digest, _ := a.Sum(passphrase)
	return digest + a.Suffix()
}

// IdentifyHash returns the algorithm a stored hash was produced with.
// Returns ErrUnknownHashFormat if no known suffix matches.
func IdentifyHash(stored string) (HashAlgorithm, error) {
	for _, a := range hashAlgorithms {
		if strings.HasSuffix(stored, a.Suffix()) {
			return a, nil
		}
	}
	return 0, kerrors.ErrUnknownHashFormat
}

// VerifyPassphrase recomputes the hash of passphrase with the stored hash's
// algorithm and compares in constant time. The algorithm is returned so callers
// can upgrade legacy hashes.
//
// Returns ErrUnknownHashFormat if stored has no known suffix.
func VerifyPassphrase(stored string, passphrase []byte) (bool, HashAlgorithm, error) {
	a, err := IdentifyHash(stored)
	if err != nil {
		return false, 0, err
	}
	computed := hashWith(a, passphrase)
	ok := subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
	return ok, a, nil
}

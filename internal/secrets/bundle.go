package secrets

import (
	"encoding/base64"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// bundleSeparator never appears in standard base64 output.
const bundleSeparator = "|"

// AES-GCM parameters of every bundle this package writes.
const (
	NonceSize = 12
	TagSize   = 16
)

// Bundle is one encrypted field: AES-GCM ciphertext, its nonce and its tag.
type Bundle struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
}

// String serializes the bundle as three base64 segments joined by "|".
func (b Bundle) String() string {
	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(b.Ciphertext),
		base64.StdEncoding.EncodeToString(b.Nonce),
		base64.StdEncoding.EncodeToString(b.Tag),
	}, bundleSeparator)
}

// ParseBundle reverses Bundle.String.
// Returns ErrMalformedCiphertext unless s has exactly three valid base64 segments.
func ParseBundle(s string) (Bundle, error) {
	parts := strings.Split(s, bundleSeparator)
	if len(parts) != 3 {
		return Bundle{}, fmt.Errorf("%w: expected 3 segments, got %d", kerrors.ErrMalformedCiphertext, len(parts))
	}

	decoded := make([][]byte, len(parts))
	for i, part := range parts {
		raw, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return Bundle{}, fmt.Errorf("%w: segment %d: %v", kerrors.ErrMalformedCiphertext, i+1, err)
		}
		decoded[i] = raw
	}

	return Bundle{Ciphertext: decoded[0], Nonce: decoded[1], Tag: decoded[2]}, nil
}

// Validate checks the nonce and tag lengths without decrypting.
func (b Bundle) Validate() error {
	if len(b.Nonce) != NonceSize {
		return fmt.Errorf("%w: nonce is %d bytes, expected %d", kerrors.ErrMalformedCiphertext, len(b.Nonce), NonceSize)
	}
	if len(b.Tag) != TagSize {
		return fmt.Errorf("%w: tag is %d bytes, expected %d", kerrors.ErrMalformedCiphertext, len(b.Tag), TagSize)
	}
	return nil
}

package secrets

import (
	"errors"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

func TestHashPassphrase_UsesStrongest(t *testing.T) {
	hash := HashPassphrase([]byte("Correct-Horse-9"))

	if !strings.HasSuffix(hash, HashBLAKE2b.Suffix()) {
		t.Errorf("Expected blake2b suffix, got %q", hash)
	}
	// 64-byte digest as hex plus the suffix.
	if len(hash) != 128+len(HashBLAKE2b.Suffix()) {
		t.Errorf("Unexpected hash length %d", len(hash))
	}
}

func TestIdentifyHash(t *testing.T) {
	for _, a := range []HashAlgorithm{HashMD5, HashSHA512, HashBLAKE2b} {
		t.Run(a.String(), func(t *testing.T) {
			stored := hashWith(a, []byte("Correct-Horse-9"))

			got, err := IdentifyHash(stored)
			if err != nil {
				t.Fatalf("IdentifyHash failed: %v", err)
			}
			if got != a {
				t.Errorf("Expected %s, got %s", a, got)
			}
		})
	}
}

func TestIdentifyHash_Unknown(t *testing.T) {
	for _, stored := range []string{"", "abcdef", "deadbeefxyz"} {
		if _, err := IdentifyHash(stored); !errors.Is(err, kerrors.ErrUnknownHashFormat) {
			t.Errorf("IdentifyHash(%q): expected ErrUnknownHashFormat, got %v", stored, err)
		}
	}
}

func TestVerifyPassphrase(t *testing.T) {
	for _, a := range []HashAlgorithm{HashMD5, HashSHA512, HashBLAKE2b} {
		t.Run(a.String(), func(t *testing.T) {
			stored := hashWith(a, []byte("Correct-Horse-9"))

			ok, got, err := VerifyPassphrase(stored, []byte("Correct-Horse-9"))
			if err != nil || !ok {
				t.Fatalf("Expected match, got ok=%v err=%v", ok, err)
			}
			if got != a {
				t.Errorf("Expected algorithm %s, got %s", a, got)
			}

			ok, _, err = VerifyPassphrase(stored, []byte("Correct-Horse-8"))
			if err != nil || ok {
				t.Errorf("Expected mismatch, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestVerifyPassphrase_KnownLegacyDigest(t *testing.T) {
	// md5("password")
	stored := "5f4dcc3b5aa765d61d8327deb882cf99" + "1sk"

	ok, a, err := VerifyPassphrase(stored, []byte("password"))
	if err != nil || !ok {
		t.Fatalf("Expected legacy md5 hash to verify, got ok=%v err=%v", ok, err)
	}
	if !a.Legacy() {
		t.Error("Expected md5 to be reported as legacy")
	}
	if HashBLAKE2b.Legacy() {
		t.Error("Expected blake2b not to be legacy")
	}
}

// Package secrets provides the cryptographic primitives for Kaitiaki.
//
// # Key Derivation
//
// The field key is derived from the master passphrase with PBKDF2-SHA256
// (DefaultIterations rounds, fixed application salt, 32-byte output). The key
// is never stored; it is re-derived on every login and lives only inside a
// FieldCipher, which locks its memory where the platform allows and zeroes it
// on Destroy.
//
// # Field Encryption
//
// Each password field is sealed with AES-256-GCM under a fresh random 12-byte
// nonce, so encrypting the same plaintext twice produces different output.
// The stored form is a Bundle serialized as three base64 segments:
//
//	base64(ciphertext)|base64(nonce)|base64(tag)
//
// A bundle that fails verification (wrong key, modified ciphertext, modified
// tag) is always reported as ErrAuthenticationFailure. Plaintext is never
// returned from a failed decrypt.
//
// # Master Key Hashes
//
// The master passphrase is stored only as a tagged hash: a hex digest with a
// short suffix identifying the algorithm. Three formats are recognised so that
// older vaults keep working:
//
//	md5      suffix 1sk
//	sha512   suffix 7wpkgh
//	blake2b  suffix q0pzth
//
// New hashes always use StrongestHashAlgorithm. Legacy formats are upgraded by
// the session after the next successful login.
package secrets

package errors

import "errors"

// Authentication errors indicate the caller has not proven knowledge of the master passphrase.
var (
	// ErrAuthenticationFailure indicates a wrong passphrase or a ciphertext whose tag did not verify.
	// Both cases are reported identically so callers cannot tell which one occurred.
	ErrAuthenticationFailure = errors.New("authentication failed")

	// ErrNotAuthenticated indicates an operation was attempted before logging in.
	ErrNotAuthenticated = errors.New("vault is locked: authenticate first")

	// ErrLockedOut indicates every login attempt was used up.
	ErrLockedOut = errors.New("too many failed login attempts")

	// ErrInterrupted indicates a prompt was cancelled before the user answered.
	ErrInterrupted = errors.New("input interrupted")
)

// Passphrase policy errors are recovered locally by prompting again.
var (
	// ErrWeakPassphrase indicates a new passphrase does not satisfy the strength policy.
	ErrWeakPassphrase = errors.New("passphrase does not meet the strength requirements")

	// ErrPassphraseMismatch indicates the confirmation did not match the first entry.
	ErrPassphraseMismatch = errors.New("passphrases do not match")
)

// Cryptographic errors indicate a stored value could not be interpreted.
var (
	// ErrUnknownHashFormat indicates the master key record carries no known algorithm suffix.
	ErrUnknownHashFormat = errors.New("unknown master key hash format")

	// ErrMalformedCiphertext indicates a stored password is not a valid ciphertext bundle.
	ErrMalformedCiphertext = errors.New("malformed ciphertext bundle")
)

// Record errors indicate problems addressing a stored credential.
var (
	// ErrRecordNotFound indicates no record matched the requested id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidField indicates a field name outside the allowed column set.
	ErrInvalidField = errors.New("invalid field name")
)

// Storage and rotation errors.
var (
	// ErrStorage indicates the storage engine failed.
	ErrStorage = errors.New("storage error")

	// ErrRotationAborted indicates master key rotation stopped before its commit.
	// The vault is left under the previous key.
	ErrRotationAborted = errors.New("master key rotation aborted")
)

// Command errors indicate the instruction itself was unusable.
var (
	// ErrCommandNotFound indicates an unknown command verb.
	ErrCommandNotFound = errors.New("command not found")

	// ErrInvalidArguments indicates a known command received unusable arguments.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrInvalidDateFormat indicates a date filter was not in YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format")
)

// Audit errors.
var (
	// ErrAuditLogNotFound indicates auditing is disabled or nothing has been logged yet.
	ErrAuditLogNotFound = errors.New("no audit log found")
)

// IsFatal reports whether err should end the current process.
// Only an exhausted login and storage failures qualify; everything else is
// reported and the session continues.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRotationAborted) {
		return false
	}
	return errors.Is(err, ErrLockedOut) || errors.Is(err, ErrStorage)
}

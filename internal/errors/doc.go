// Package errors provides typed error values for the Kaitiaki vault.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Authentication errors: wrong passphrase, lockout, missing login
//     (ErrAuthenticationFailure, ErrLockedOut, ErrNotAuthenticated)
//   - Passphrase policy errors: rejected new passphrases
//     (ErrWeakPassphrase, ErrPassphraseMismatch)
//   - Crypto errors: unreadable stored values
//     (ErrUnknownHashFormat, ErrMalformedCiphertext)
//   - Record errors: missing ids and bad field names
//     (ErrRecordNotFound, ErrInvalidField)
//   - Storage errors: engine failures (ErrStorage)
//   - Command errors: unknown verbs and bad arguments
//     (ErrCommandNotFound, ErrInvalidArguments, ErrInvalidDateFormat)
//   - Audit errors: ErrAuditLogNotFound
//
// # Usage
//
// Return errors from internal packages:
//
//	if s.State() != session.StateAuthenticated {
//	    return nil, errors.ErrNotAuthenticated
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := dispatcher.Execute(ctx, ins)
//	if kerrors.IsFatal(err) {
//	    // Shut down cleanly
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("%w: inserting record: %v", errors.ErrStorage, err)
package errors

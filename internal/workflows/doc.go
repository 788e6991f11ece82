// Package workflows provides high-level orchestration for Kaitiaki commands.
//
// Workflows coordinate the store, session, secrets and audit packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Builds a Vault (store, session, audit trail)
//   - Calls the appropriate workflow function, or feeds instructions to a Dispatcher
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Checking the session is authenticated before touching storage
//   - Encrypting and decrypting password fields
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - List: decrypts records, optionally filtered by one field
//   - Add: encrypts and stores a new record
//   - Update: changes one field of a record
//   - Delete: removes records by id, skipping ids that do not exist
//   - Rotate: replaces the master passphrase and re-encrypts every record
//   - Craft: derives a stronger password from a phrase
//   - Log: reads and filters the audit trail
//   - Doctor: runs read-only health checks on a locked vault
//
// # Dispatcher
//
// Dispatcher accepts tokenized instructions ("delete 3..5 9") from any
// InstructionSource, whether an interactive prompt or a one-shot command
// line, and maps them onto the workflows above. With AutoLogin set it
// authenticates lazily on the first command that needs the vault unlocked.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Update(ctx, vault, opts)
//	if errors.Is(err, kerrors.ErrRecordNotFound) {
//	    // Tell the user which id was missing
//	}
//
// # Context Usage
//
// All vault workflow functions accept a context.Context as their first
// parameter. Cancelling it stops batch operations between records and rolls
// back an in-progress rotation.
package workflows

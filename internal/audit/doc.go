// Package audit provides an audit trail of vault operations.
//
// Every operation that reads or changes credentials (list, add, update,
// delete, rotate) and every login outcome is recorded in a log that sits
// next to the vault file. Entries never contain sites, usernames or
// passwords, only record ids and counts.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	<vault path>.audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Session ID, a random UUID shared by every entry of one process
//   - Operation name and outcome
//   - Operation-specific details (record ids, field name, counts)
//
// # Usage
//
//	trail := audit.Open(path)
//	trail.Log(audit.Entry{Operation: "delete", IDs: []int64{4, 5}})
//
// A nil *Trail is valid and discards every entry, which is how auditing is
// disabled.
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit

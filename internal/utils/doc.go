// Package utils provides terminal helpers shared by the command layer.
//
// # Terminal Utilities
//
// Functions for reading secrets without echo:
//   - ReadPassphrase: reads from stdin, or /dev/tty when stdin is redirected
//   - ReadPassphraseFromTTY: always reads from /dev/tty (CON on Windows)
//   - IsTerminal, IsTTYAvailable: capability checks
//
// # I/O Utilities
//
// Functions for simple interactive questions:
//   - Confirm: asks a yes/no question, defaulting to no
package utils

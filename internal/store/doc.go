// Package store persists vault records in a single SQLite file.
//
// Every credential is a row of the login table. Row id 1 is reserved for the
// master key hash and is invisible to every user-facing method: List, FindBy,
// Update, Delete and Count all exclude it.
//
// Two database/sql drivers are supported. "sqlite" (modernc.org/sqlite, pure Go)
// is the default; "sqlite3" (github.com/mattn/go-sqlite3) is registered in cgo
// builds only.
package store

package store

import (
	"context"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// ReservedID is the row holding the master key hash.
const ReservedID int64 = 1

// Values written into the reserved row alongside the hash.
const (
	masterKeySite     = "csp"
	masterKeyUsername = "masterkey"
)

// Record is one stored credential. Password holds a serialized ciphertext bundle.
type Record struct {
	ID       int64
	Site     *string
	Username *string
	Password string
}

// Field is a column a caller may filter or update by.
type Field string

const (
	FieldID       Field = "id"
	FieldSite     Field = "site"
	FieldUsername Field = "username"
	FieldPassword Field = "password"
)

// Fields lists every accepted field name.
var Fields = []Field{FieldID, FieldSite, FieldUsername, FieldPassword}

// ParseField checks name against the column allow-list.
// Returns ErrInvalidField for anything else.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected one of id, site, username, password)", kerrors.ErrInvalidField, name)
}

// Store is the persistence boundary for the vault.
//
// Engine failures are returned wrapped with ErrStorage. Lookups that match
// nothing return an empty slice, not an error.
type Store interface {
	MasterKeyExists(ctx context.Context) (bool, error)
	// MasterKey returns the stored tagged hash, or ErrRecordNotFound when the vault is uninitialised.
	MasterKey(ctx context.Context) (string, error)
	// SetMasterKey creates the reserved row. It is a no-op if the row already exists.
	SetMasterKey(ctx context.Context, hash string) error
	UpdateMasterKey(ctx context.Context, hash string) error

	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, site, username *string, password string) (int64, error)
	Update(ctx context.Context, field Field, value string, id int64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Record, error)
	FindBy(ctx context.Context, field Field, value string) ([]Record, error)
	FirstCiphertext(ctx context.Context) (string, bool, error)

	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx groups master key and password updates so they commit together.
// Rollback after Commit is a no-op.
type Tx interface {
	UpdateMasterKey(ctx context.Context, hash string) error
	Update(ctx context.Context, field Field, value string, id int64) error
	Commit() error
	Rollback() error
}

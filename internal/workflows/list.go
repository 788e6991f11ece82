package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/store"
)

// ListOptions configures the list workflow.
type ListOptions struct {
	// Field and Value filter records by exact match. Both empty lists everything.
	Field string
	Value string
}

// ListResult contains the outcome of a list operation.
type ListResult struct {
	// Entries are the decrypted records, ordered by id.
	Entries []Entry

	// Problems holds one error per record that could not be decrypted.
	// Those records are left out of Entries.
	Problems []error
}

// List decrypts and returns stored records.
//
// Filtering on the password field compares decrypted plaintexts, since two
// encryptions of the same password never produce the same ciphertext.
//
// Returns ErrNotAuthenticated if the session is not logged in.
// Returns ErrInvalidArguments if only one of Field and Value is set.
// Returns ErrInvalidField if Field is not an allowed column.
func List(ctx context.Context, v *Vault, opts ListOptions) (*ListResult, error) {
	c, err := v.cipher()
	if err != nil {
		return nil, err
	}

	if (opts.Field == "") != (opts.Value == "") {
		return nil, fmt.Errorf("%w: list takes a field and a value", kerrors.ErrInvalidArguments)
	}

	var field store.Field
	var records []store.Record
	switch {
	case opts.Field == "":
		records, err = v.Store.List(ctx)
	default:
		field, err = store.ParseField(opts.Field)
		if err != nil {
			return nil, err
		}
		if field == store.FieldPassword {
			records, err = v.Store.List(ctx)
		} else {
			records, err = v.Store.FindBy(ctx, field, opts.Value)
		}
	}
	if err != nil {
		return nil, err
	}

	result := &ListResult{Entries: []Entry{}}
	for _, r := range records {
		entry, err := decryptRecord(c, r)
		if err != nil {
			v.Logger.Debugf("Skipping record %d: %v", r.ID, err)
			result.Problems = append(result.Problems, err)
			continue
		}
		if field == store.FieldPassword && entry.Password != opts.Value {
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	v.Audit.Log(audit.Entry{
		Operation: "list",
		Field:     string(field),
		Count:     len(result.Entries),
		Outcome:   outcome(result.Problems),
	})

	return result, nil
}

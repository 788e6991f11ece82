package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/store"
)

// UpdateOptions configures the update workflow.
type UpdateOptions struct {
	Field string
	Value string
	ID    int64
}

// UpdateResult contains the outcome of an update operation.
type UpdateResult struct {
	ID    int64
	Field store.Field
}

// Update changes one field of an existing record. A new password is encrypted
// under a fresh nonce before it is stored.
//
// Returns ErrNotAuthenticated if the session is not logged in.
// Returns ErrInvalidField for an unknown field or the id field.
// Returns ErrRecordNotFound if no record has the given id.
func Update(ctx context.Context, v *Vault, opts UpdateOptions) (*UpdateResult, error) {
	c, err := v.cipher()
	if err != nil {
		return nil, err
	}

	field, err := store.ParseField(opts.Field)
	if err != nil {
		return nil, err
	}
	if field == store.FieldID {
		return nil, fmt.Errorf("%w: id cannot be updated", kerrors.ErrInvalidField)
	}

	found, err := v.exists(ctx, opts.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		v.Audit.Log(audit.Entry{Operation: "update", IDs: []int64{opts.ID}, Field: string(field), Outcome: audit.OutcomeFailure})
		return nil, fmt.Errorf("%w: id %d", kerrors.ErrRecordNotFound, opts.ID)
	}

	value := opts.Value
	if field == store.FieldPassword {
		value, err = c.EncryptString(opts.Value)
		if err != nil {
			return nil, fmt.Errorf("encrypting password: %w", err)
		}
	}

	if err := v.Store.Update(ctx, field, value, opts.ID); err != nil {
		return nil, err
	}

	v.Logger.Infof("Updated %s of record %d", field, opts.ID)
	v.Audit.Log(audit.Entry{Operation: "update", IDs: []int64{opts.ID}, Field: string(field)})

	return &UpdateResult{ID: opts.ID, Field: field}, nil
}

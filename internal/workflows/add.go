package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// AddOptions configures the add workflow.
type AddOptions struct {
	// Site and Username are optional.
	Site     *string
	Username *string

	// Password is encrypted before it is stored.
	Password string
}

// AddResult contains the outcome of an add operation.
type AddResult struct {
	// ID is the id assigned to the new record.
	ID int64
}

// Add encrypts the password and stores a new record.
//
// Returns ErrNotAuthenticated if the session is not logged in.
// Returns ErrInvalidArguments if Password is empty.
func Add(ctx context.Context, v *Vault, opts AddOptions) (*AddResult, error) {
	c, err := v.cipher()
	if err != nil {
		return nil, err
	}

	if opts.Password == "" {
		return nil, fmt.Errorf("%w: password is required", kerrors.ErrInvalidArguments)
	}

	bundle, err := c.EncryptString(opts.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypting password: %w", err)
	}

	id, err := v.Store.Insert(ctx, opts.Site, opts.Username, bundle)
	if err != nil {
		return nil, err
	}

	v.Logger.Infof("Added record %d", id)
	v.Audit.Log(audit.Entry{Operation: "add", IDs: []int64{id}})

	return &AddResult{ID: id}, nil
}

// AddOptionsFromArgs maps positional arguments onto AddOptions:
//
//	password
//	username password
//	site username password
func AddOptionsFromArgs(args []string) (AddOptions, error) {
	switch len(args) {
	case 1:
		return AddOptions{Password: args[0]}, nil
	case 2:
		return AddOptions{Username: &args[0], Password: args[1]}, nil
	case 3:
		return AddOptions{Site: &args[0], Username: &args[1], Password: args[2]}, nil
	default:
		return AddOptions{}, fmt.Errorf("%w: usage: add [site] [username] password", kerrors.ErrInvalidArguments)
	}
}

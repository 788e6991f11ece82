package workflows

import (
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
)

// CraftOptions configures the craft workflow.
type CraftOptions struct {
	Phrase string

	// Separator splits Phrase into words. Empty means a single space.
	Separator string
}

// CraftResult contains the outcome of a craft operation.
type CraftResult struct {
	Password string

	// Weakness is nil when Password satisfies the passphrase strength policy.
	Weakness error
}

// Craft turns a memorable phrase into a harder password. It needs no vault
// and stores nothing.
//
// Returns ErrInvalidArguments if Phrase is blank.
func Craft(opts CraftOptions) (*CraftResult, error) {
	if strings.TrimSpace(opts.Phrase) == "" {
		return nil, fmt.Errorf("%w: craft needs a phrase", kerrors.ErrInvalidArguments)
	}

	password := secrets.CraftPassword(opts.Phrase, opts.Separator)
	return &CraftResult{
		Password: password,
		Weakness: secrets.CheckPassphraseStrength([]byte(password)),
	}, nil
}

package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	logger "github.com/PolarWolf314/kaitiaki/internal/logging"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
	"github.com/PolarWolf314/kaitiaki/internal/session"
	"github.com/PolarWolf314/kaitiaki/internal/store"
)

// Vault bundles the collaborators every vault workflow needs. It is built
// once by the caller and passed to each workflow.
type Vault struct {
	Store   store.Store
	Session *session.Session

	// Audit may be nil, which disables the audit trail.
	Audit  *audit.Trail
	Logger logger.Logger
}

// Entry is a decrypted view of one record. Empty Site or Username means the
// field was never set.
type Entry struct {
	ID       int64
	Site     string
	Username string
	Password string
}

// cipher returns the session cipher, failing before any storage access when
// the vault is locked.
func (v *Vault) cipher() (*secrets.FieldCipher, error) {
	if v == nil || v.Session == nil {
		return nil, kerrors.ErrNotAuthenticated
	}
	return v.Session.Cipher()
}

// decryptRecord turns a stored record into an Entry.
func decryptRecord(c *secrets.FieldCipher, r store.Record) (Entry, error) {
	password, err := c.DecryptString(r.Password)
	if err != nil {
		return Entry{}, fmt.Errorf("record %d: %w", r.ID, err)
	}
	return Entry{
		ID:       r.ID,
		Site:     deref(r.Site),
		Username: deref(r.Username),
		Password: password,
	}, nil
}

// exists reports whether a non-reserved record with id is stored.
func (v *Vault) exists(ctx context.Context, id int64) (bool, error) {
	records, err := v.Store.FindBy(ctx, store.FieldID, fmt.Sprint(id))
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func outcome(problems []error) string {
	if len(problems) > 0 {
		return audit.OutcomePartial
	}
	return audit.OutcomeSuccess
}

package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
	"github.com/PolarWolf314/kaitiaki/internal/store"
)

// RotateOptions configures the rotate workflow.
// Confirmation is the caller's concern.
type RotateOptions struct {
	// Progress, if set, is called after each record is re-encrypted.
	Progress func(done, total int)
}

// RotateResult contains the outcome of a rotate operation.
type RotateResult struct {
	// Count is the number of records re-encrypted under the new key.
	Count int
}

// Rotate replaces the master passphrase and re-encrypts every record under
// the key derived from it.
//
// The workflow:
//  1. Asks for the current passphrase again and verifies it
//  2. Decrypts every record with the current key
//  3. Asks for the new passphrase and derives the new key (nothing stored yet)
//  4. Re-encrypts every record with the new key
//  5. Writes the new master key hash and every new ciphertext in one transaction
//
// If anything fails before the commit, the transaction is rolled back and
// the vault stays entirely under the old key. After the commit the session
// switches to the new key and the old one is zeroed.
//
// Returns ErrNotAuthenticated if the session is not logged in.
// Returns ErrRotationAborted, wrapping the cause, for any failure after that.
func Rotate(ctx context.Context, v *Vault, opts RotateOptions) (*RotateResult, error) {
	current, err := v.cipher()
	if err != nil {
		return nil, err
	}

	result, algorithm, err := rotate(ctx, v, current, opts)
	if err != nil {
		v.Audit.Log(audit.Entry{Operation: "rotate", Outcome: audit.OutcomeFailure})
		return nil, fmt.Errorf("%w: %w", kerrors.ErrRotationAborted, err)
	}

	v.Logger.Infof("Rotated master key, re-encrypted %d record(s)", result.Count)
	v.Audit.Log(audit.Entry{Operation: "rotate", Count: result.Count, Algorithm: algorithm})

	return result, nil
}

func rotate(ctx context.Context, v *Vault, current *secrets.FieldCipher, opts RotateOptions) (*RotateResult, string, error) {
	if err := v.Session.Reauthenticate(ctx); err != nil {
		return nil, "", err
	}

	records, err := v.Store.List(ctx)
	if err != nil {
		return nil, "", err
	}

	plaintexts := make([][]byte, len(records))
	defer func() {
		for _, p := range plaintexts {
			secrets.Zero(p)
		}
	}()
	for i, r := range records {
		bundle, err := secrets.ParseBundle(r.Password)
		if err != nil {
			return nil, "", fmt.Errorf("record %d: %w", r.ID, err)
		}
		plaintexts[i], err = current.Decrypt(bundle)
		if err != nil {
			return nil, "", fmt.Errorf("record %d: %w", r.ID, err)
		}
	}
	v.Logger.Debugf("Decrypted %d record(s) for rotation", len(records))

	rekey, err := v.Session.PrepareRekey(ctx)
	if err != nil {
		return nil, "", err
	}
	committed := false
	defer func() {
		if !committed {
			rekey.Discard()
		}
	}()

	ciphertexts := make([]string, len(records))
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		bundle, err := rekey.Cipher.Encrypt(plaintexts[i])
		if err != nil {
			return nil, "", fmt.Errorf("record %d: %w", records[i].ID, err)
		}
		ciphertexts[i] = bundle.String()
		if opts.Progress != nil {
			opts.Progress(i+1, len(records))
		}
	}

	if err := commitRotation(ctx, v.Store, rekey.Hash, records, ciphertexts); err != nil {
		return nil, "", err
	}
	committed = true

	if err := v.Session.Adopt(rekey); err != nil {
		return nil, "", err
	}

	return &RotateResult{Count: len(records)}, secrets.StrongestHashAlgorithm.String(), nil
}

// commitRotation writes the new hash and every ciphertext in one transaction.
func commitRotation(ctx context.Context, s store.Store, hash string, records []store.Record, ciphertexts []string) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.UpdateMasterKey(ctx, hash); err != nil {
		return err
	}
	for i, r := range records {
		if err := tx.Update(ctx, store.FieldPassword, ciphertexts[i], r.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

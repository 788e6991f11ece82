package workflows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// MaxRangeSpan bounds how many ids a single a..b token may expand to.
const MaxRangeSpan = 10000

// DeleteOptions configures the delete workflow.
type DeleteOptions struct {
	IDs []int64
}

// DeleteResult contains the outcome of a delete operation.
type DeleteResult struct {
	// Deleted lists the ids that were removed, in request order.
	Deleted []int64

	// Problems holds an ErrRecordNotFound for every id that did not exist.
	Problems []error
}

// Delete removes each requested record. A missing id is reported in
// Problems and the remaining ids are still deleted. On a storage failure or
// cancellation the result is returned with the error, holding the ids that
// were already removed.
//
// Returns ErrNotAuthenticated if the session is not logged in.
// Returns ErrInvalidArguments if no ids are given.
func Delete(ctx context.Context, v *Vault, opts DeleteOptions) (*DeleteResult, error) {
	if _, err := v.cipher(); err != nil {
		return nil, err
	}

	if len(opts.IDs) == 0 {
		return nil, fmt.Errorf("%w: no ids to delete", kerrors.ErrInvalidArguments)
	}

	result := &DeleteResult{}
	err := deleteEach(ctx, v, opts.IDs, result)

	v.Logger.Infof("Deleted %d record(s)", len(result.Deleted))
	entry := audit.Entry{
		Operation: "delete",
		IDs:       result.Deleted,
		Count:     len(result.Deleted),
		Outcome:   outcome(result.Problems),
	}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		if len(result.Deleted) > 0 {
			entry.Outcome = audit.OutcomePartial
		}
	}
	v.Audit.Log(entry)

	return result, err
}

// deleteEach stops at the first storage failure or cancellation. Ids deleted
// before that point stay recorded in result.
func deleteEach(ctx context.Context, v *Vault, ids []int64, result *DeleteResult) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		found, err := v.exists(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			result.Problems = append(result.Problems, fmt.Errorf("%w: id %d", kerrors.ErrRecordNotFound, id))
			continue
		}

		if err := v.Store.Delete(ctx, id); err != nil {
			if errors.Is(err, kerrors.ErrRecordNotFound) {
				result.Problems = append(result.Problems, err)
				continue
			}
			return err
		}
		result.Deleted = append(result.Deleted, id)
	}
	return nil
}

// ParseIDs expands delete arguments into ids. Each token is either a single
// id or an inclusive range a..b. Duplicates are dropped, first occurrence wins.
//
// Returns ErrInvalidArguments for a token that is not a positive id, a
// reversed range, or a range wider than MaxRangeSpan.
func ParseIDs(tokens []string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, token := range tokens {
		lo, hi, isRange := strings.Cut(token, "..")
		if !isRange {
			id, err := parseID(token)
			if err != nil {
				return nil, err
			}
			add(id)
			continue
		}

		start, err := parseID(lo)
		if err != nil {
			return nil, err
		}
		end, err := parseID(hi)
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("%w: range %q is reversed", kerrors.ErrInvalidArguments, token)
		}
		if end-start >= MaxRangeSpan {
			return nil, fmt.Errorf("%w: range %q spans more than %d ids", kerrors.ErrInvalidArguments, token, MaxRangeSpan)
		}
		// Counting avoids overflow when end is math.MaxInt64.
		for n := int64(0); n <= end-start; n++ {
			add(start + n)
		}
	}

	return ids, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q is not a record id", kerrors.ErrInvalidArguments, s)
	}
	return id, nil
}

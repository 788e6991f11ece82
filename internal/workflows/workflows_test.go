package workflows

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_EncryptsBeforeStoring(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	site, user := "gmail", "alice"
	res, err := Add(ctx, v.Vault, AddOptions{Site: &site, Username: &user, Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.ID)

	records, err := v.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotContains(t, records[0].Password, "hunter2")
	assert.Contains(t, records[0].Password, "|")
}

func TestAdd_RequiresPassword(t *testing.T) {
	v := newUnlockedVault(t)

	_, err := Add(context.Background(), v.Vault, AddOptions{})
	assert.ErrorIs(t, err, kerrors.ErrInvalidArguments)
}

func TestAddOptionsFromArgs(t *testing.T) {
	opts, err := AddOptionsFromArgs([]string{"pw"})
	require.NoError(t, err)
	assert.Nil(t, opts.Site)
	assert.Nil(t, opts.Username)
	assert.Equal(t, "pw", opts.Password)

	opts, err = AddOptionsFromArgs([]string{"alice", "pw"})
	require.NoError(t, err)
	assert.Nil(t, opts.Site)
	assert.Equal(t, "alice", *opts.Username)

	opts, err = AddOptionsFromArgs([]string{"gmail", "alice", "pw"})
	require.NoError(t, err)
	assert.Equal(t, "gmail", *opts.Site)
	assert.Equal(t, "alice", *opts.Username)

	_, err = AddOptionsFromArgs(nil)
	assert.ErrorIs(t, err, kerrors.ErrInvalidArguments)
	_, err = AddOptionsFromArgs([]string{"a", "b", "c", "d"})
	assert.ErrorIs(t, err, kerrors.ErrInvalidArguments)
}

func TestWorkflows_RequireAuthentication(t *testing.T) {
	v := newTestVault(t)
	spy := &spyStore{Store: v.store}
	v.Store = spy
	ctx := context.Background()

	_, err := List(ctx, v.Vault, ListOptions{})
	assert.ErrorIs(t, err, kerrors.ErrNotAuthenticated)
	_, err = Add(ctx, v.Vault, AddOptions{Password: "pw"})
	assert.ErrorIs(t, err, kerrors.ErrNotAuthenticated)
	_, err = Update(ctx, v.Vault, UpdateOptions{Field: "site", Value: "x", ID: 2})
	assert.ErrorIs(t, err, kerrors.ErrNotAuthenticated)
	_, err = Delete(ctx, v.Vault, DeleteOptions{IDs: []int64{2}})
	assert.ErrorIs(t, err, kerrors.ErrNotAuthenticated)
	_, err = Rotate(ctx, v.Vault, RotateOptions{})
	assert.ErrorIs(t, err, kerrors.ErrNotAuthenticated)

	assert.Zero(t, spy.calls, "storage was touched while locked")
}

func TestList(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()
	seed(t, v.Vault, "hunter2", "swordfish", "hunter2")

	res, err := List(ctx, v.Vault, ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, "hunter2", res.Entries[0].Password)
	assert.Equal(t, "sitea", res.Entries[0].Site)
	assert.Empty(t, res.Entries[0].Username)

	res, err = List(ctx, v.Vault, ListOptions{Field: "site", Value: "siteb"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "swordfish", res.Entries[0].Password)
}

func TestList_PasswordFilterComparesPlaintext(t *testing.T) {
	v := newUnlockedVault(t)
	ids := seed(t, v.Vault, "hunter2", "swordfish", "hunter2")

	res, err := List(context.Background(), v.Vault, ListOptions{Field: "password", Value: "hunter2"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, ids[0], res.Entries[0].ID)
	assert.Equal(t, ids[2], res.Entries[1].ID)
}

func TestList_InvalidFilters(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	_, err := List(ctx, v.Vault, ListOptions{Field: "email", Value: "x"})
	assert.ErrorIs(t, err, kerrors.ErrInvalidField)

	_, err = List(ctx, v.Vault, ListOptions{Field: "site"})
	assert.ErrorIs(t, err, kerrors.ErrInvalidArguments)
}

func TestList_ReportsUnreadableRecords(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()
	seed(t, v.Vault, "hunter2")

	// A malformed bundle and one sealed under a different key.
	_, err := v.store.Insert(ctx, nil, nil, "not-a-bundle")
	require.NoError(t, err)
	_, err = v.store.Insert(ctx, nil, nil, "AAAA|AAAAAAAAAAAAAAAA|AAAAAAAAAAAAAAAAAAAAAA==")
	require.NoError(t, err)

	res, err := List(ctx, v.Vault, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)
	require.Len(t, res.Problems, 2)
	assert.ErrorIs(t, res.Problems[0], kerrors.ErrMalformedCiphertext)
	assert.ErrorIs(t, res.Problems[1], kerrors.ErrAuthenticationFailure)
}

func TestUpdate(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()
	ids := seed(t, v.Vault, "hunter2")

	_, err := Update(ctx, v.Vault, UpdateOptions{Field: "username", Value: "bob", ID: ids[0]})
	require.NoError(t, err)
	_, err = Update(ctx, v.Vault, UpdateOptions{Field: "password", Value: "letmein", ID: ids[0]})
	require.NoError(t, err)

	res, err := List(ctx, v.Vault, ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "bob", res.Entries[0].Username)
	assert.Equal(t, "letmein", res.Entries[0].Password)

	records, err := v.store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, records[0].Password, "letmein")
}

func TestUpdate_Rejections(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()
	ids := seed(t, v.Vault, "hunter2")

	_, err := Update(ctx, v.Vault, UpdateOptions{Field: "id", Value: "9", ID: ids[0]})
	assert.ErrorIs(t, err, kerrors.ErrInvalidField)

	_, err = Update(ctx, v.Vault, UpdateOptions{Field: "email", Value: "x", ID: ids[0]})
	assert.ErrorIs(t, err, kerrors.ErrInvalidField)

	_, err = Update(ctx, v.Vault, UpdateOptions{Field: "site", Value: "x", ID: 99})
	assert.ErrorIs(t, err, kerrors.ErrRecordNotFound)

	_, err = Update(ctx, v.Vault, UpdateOptions{Field: "password", Value: "x", ID: store.ReservedID})
	assert.ErrorIs(t, err, kerrors.ErrRecordNotFound)
}

func TestDelete_SkipsMissingIDs(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()
	ids := seed(t, v.Vault, "a", "b", "c", "d") // ids 2..5
	require.Equal(t, []int64{2, 3, 4, 5}, ids)

	_, err := Delete(ctx, v.Vault, DeleteOptions{IDs: []int64{4}})
	require.NoError(t, err)

	res, err := Delete(ctx, v.Vault, DeleteOptions{IDs: []int64{3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, res.Deleted)
	require.Len(t, res.Problems, 1)
	assert.ErrorIs(t, res.Problems[0], kerrors.ErrRecordNotFound)

	remaining, err := v.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].ID)
}

// failingDeleteStore fails Delete for one id with a storage error.
type failingDeleteStore struct {
	store.Store
	failOn int64
}

func (s *failingDeleteStore) Delete(ctx context.Context, id int64) error {
	if id == s.failOn {
		return fmt.Errorf("%w: disk I/O error", kerrors.ErrStorage)
	}
	return s.Store.Delete(ctx, id)
}

func TestDelete_StorageFailureKeepsPartialResult(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()
	seed(t, v.Vault, "a", "b", "c") // ids 2..4
	v.Store = &failingDeleteStore{Store: v.store, failOn: 3}

	res, err := Delete(ctx, v.Vault, DeleteOptions{IDs: []int64{2, 3, 4}})
	assert.ErrorIs(t, err, kerrors.ErrStorage)
	require.NotNil(t, res)
	assert.Equal(t, []int64{2}, res.Deleted)

	entries, err := audit.ReadEntries(v.Audit.Path())
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, "delete", last.Operation)
	assert.Equal(t, []int64{2}, last.IDs)
	assert.Equal(t, audit.OutcomePartial, last.Outcome)

	remaining, err := v.store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestDelete_CancelledBeforeAnyDeletion(t *testing.T) {
	v := newUnlockedVault(t)
	seed(t, v.Vault, "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Delete(ctx, v.Vault, DeleteOptions{IDs: []int64{2}})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Deleted)

	entries, err := audit.ReadEntries(v.Audit.Path())
	require.NoError(t, err)
	assert.Equal(t, audit.OutcomeFailure, entries[len(entries)-1].Outcome)
}

func TestDelete_NeverTouchesMasterKey(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	res, err := Delete(ctx, v.Vault, DeleteOptions{IDs: []int64{store.ReservedID}})
	require.NoError(t, err)
	assert.Empty(t, res.Deleted)
	assert.Len(t, res.Problems, 1)

	exists, err := v.store.MasterKeyExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		tokens   []string
		expected []int64
	}{
		{[]string{"4"}, []int64{4}},
		{[]string{"4", "7"}, []int64{4, 7}},
		{[]string{"3..5"}, []int64{3, 4, 5}},
		{[]string{"2", "6..8", "10"}, []int64{2, 6, 7, 8, 10}},
		{[]string{"5..5"}, []int64{5}},
		{[]string{"3..5", "4", "3"}, []int64{3, 4, 5}},
		{[]string{"9223372036854775806..9223372036854775807"}, []int64{math.MaxInt64 - 1, math.MaxInt64}},
	}

	for _, tt := range tests {
		got, err := ParseIDs(tt.tokens)
		require.NoError(t, err, tt.tokens)
		assert.Equal(t, tt.expected, got, tt.tokens)
	}
}

func TestParseIDs_Invalid(t *testing.T) {
	for _, tokens := range [][]string{
		{"x"},
		{"0"},
		{"-3"},
		{"5..3"},
		{"3.."},
		{"..3"},
		{"1..2..3"},
		{"1..20000"},
		{"2", "abc"},
	} {
		_, err := ParseIDs(tokens)
		assert.ErrorIs(t, err, kerrors.ErrInvalidArguments, tokens)
	}
}

func TestCraft(t *testing.T) {
	res, err := Craft(CraftOptions{Phrase: "my secret key"})
	require.NoError(t, err)
	assert.Equal(t, "My$3Cr3tK3y", res.Password)
	assert.NoError(t, res.Weakness)

	res, err = Craft(CraftOptions{Phrase: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "H3ll0", res.Password)
	assert.ErrorIs(t, res.Weakness, kerrors.ErrWeakPassphrase)

	_, err = Craft(CraftOptions{Phrase: "   "})
	assert.ErrorIs(t, err, kerrors.ErrInvalidArguments)
}

func TestWorkflows_WriteAuditTrail(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()
	ids := seed(t, v.Vault, "hunter2")

	_, err := List(ctx, v.Vault, ListOptions{})
	require.NoError(t, err)
	_, err = Delete(ctx, v.Vault, DeleteOptions{IDs: []int64{ids[0], 42}})
	require.NoError(t, err)

	entries, err := audit.ReadEntries(v.Audit.Path())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "add", entries[0].Operation)
	assert.Equal(t, "list", entries[1].Operation)
	assert.Equal(t, 1, entries[1].Count)
	assert.Equal(t, "delete", entries[2].Operation)
	assert.Equal(t, audit.OutcomePartial, entries[2].Outcome)
	assert.Equal(t, []int64{ids[0]}, entries[2].IDs)
}

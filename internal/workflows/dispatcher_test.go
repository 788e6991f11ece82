package workflows

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
	"github.com/PolarWolf314/kaitiaki/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink keeps everything the dispatcher produced.
type recordingSink struct {
	results []*Result
	errs    []error
}

func (s *recordingSink) Render(r *Result) { s.results = append(s.results, r) }
func (s *recordingSink) Fail(err error)   { s.errs = append(s.errs, err) }

func lines(raw ...string) *Instructions {
	var ins Instructions
	for _, l := range raw {
		in, ok := ParseInstruction(l)
		if ok {
			ins = append(ins, in)
		}
	}
	return &ins
}

func TestParseInstruction(t *testing.T) {
	in, ok := ParseInstruction("  DEL  3..5   7 ")
	require.True(t, ok)
	assert.Equal(t, "del", in.Command)
	assert.Equal(t, []string{"3..5", "7"}, in.Args)
	assert.Equal(t, "del 3..5 7", in.String())

	_, ok = ParseInstruction("   ")
	assert.False(t, ok)
}

func TestDispatcher_FreshVaultAdd(t *testing.T) {
	v := newTestVault(t)
	v.prompter.queue(masterPassphrase, masterPassphrase)
	d := NewDispatcher(v.Vault, DispatcherOptions{AutoLogin: true})
	sink := &recordingSink{}

	err := d.Run(context.Background(), lines("add gmail alice hunter2", "list"), sink)
	require.NoError(t, err)
	require.Empty(t, sink.errs)
	require.Len(t, sink.results, 2)

	assert.Equal(t, "add", sink.results[0].Command)
	assert.Equal(t, []string{"Record 2 added"}, sink.results[0].Messages)

	entries := sink.results[1].Entries
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{ID: 2, Site: "gmail", Username: "alice", Password: "hunter2"}, entries[0])

	records, err := v.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	bundle, err := secrets.ParseBundle(records[0].Password)
	require.NoError(t, err)
	assert.NotContains(t, string(bundle.Ciphertext), "hunter2")
}

func TestDispatcher_LockoutIsFatal(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.store.SetMasterKey(ctx, secrets.HashPassphrase([]byte(masterPassphrase))))
	_, err := v.store.Insert(ctx, nil, nil, "ct|n|t")
	require.NoError(t, err)

	before, err := os.ReadFile(v.path)
	require.NoError(t, err)

	v.prompter.queue("wrong-1", "wrong-2", "wrong-3")
	d := NewDispatcher(v.Vault, DispatcherOptions{AutoLogin: true})
	sink := &recordingSink{}

	err = d.Run(ctx, lines("list", "add never stored"), sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrLockedOut)
	assert.Equal(t, session.StateLockedOut, v.Session.State())
	assert.Len(t, sink.errs, 1, "loop must stop after lockout")

	after, err := os.ReadFile(v.path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after), "vault file changed by failed login")

	entries, err := audit.ReadEntries(v.Audit.Path())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "login", entries[0].Operation)
	assert.Equal(t, audit.OutcomeFailure, entries[0].Outcome)
}

func TestDispatcher_RangeDeleteWithMissingID(t *testing.T) {
	v := newUnlockedVault(t)
	seed(t, v.Vault, "a", "b", "c", "d") // ids 2..5
	d := NewDispatcher(v.Vault, DispatcherOptions{})
	ctx := context.Background()

	_, err := d.Execute(ctx, Instruction{Command: "delete", Args: []string{"4"}})
	require.NoError(t, err)

	res, err := d.Execute(ctx, Instruction{Command: "del", Args: []string{"3..5"}})
	require.NoError(t, err)
	assert.Equal(t, "delete", res.Command)
	assert.Equal(t, []string{"Deleted 3, 5"}, res.Messages)
	require.Len(t, res.Problems, 1)
	assert.ErrorIs(t, res.Problems[0], kerrors.ErrRecordNotFound)

	remaining, err := v.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].ID)
}

func TestDispatcher_DeleteFailureReportsDeletedIDs(t *testing.T) {
	v := newUnlockedVault(t)
	seed(t, v.Vault, "a", "b", "c") // ids 2..4
	v.Store = &failingDeleteStore{Store: v.store, failOn: 4}
	d := NewDispatcher(v.Vault, DispatcherOptions{})
	sink := &recordingSink{}

	err := d.Run(context.Background(), lines("delete 2..4"), sink)
	assert.ErrorIs(t, err, kerrors.ErrStorage)

	require.Len(t, sink.results, 1)
	assert.Equal(t, "delete", sink.results[0].Command)
	assert.Equal(t, []string{"Deleted 2, 3"}, sink.results[0].Messages)
	require.Len(t, sink.errs, 1)
	assert.ErrorIs(t, sink.errs[0], kerrors.ErrStorage)
}

func TestDispatcher_UnknownCommandContinues(t *testing.T) {
	v := newUnlockedVault(t)
	d := NewDispatcher(v.Vault, DispatcherOptions{})
	sink := &recordingSink{}

	err := d.Run(context.Background(), lines("frobnicate", "add pw", "exit", "add never"), sink)
	require.NoError(t, err)

	require.Len(t, sink.errs, 1)
	assert.ErrorIs(t, sink.errs[0], kerrors.ErrCommandNotFound)
	require.Len(t, sink.results, 2)
	assert.True(t, sink.results[1].Exit)

	n, err := v.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "instructions after exit must not run")
}

func TestDispatcher_LockedWithoutAutoLogin(t *testing.T) {
	v := newTestVault(t)
	spy := &spyStore{Store: v.store}
	v.Store = spy
	d := NewDispatcher(v.Vault, DispatcherOptions{})

	for _, line := range []string{"list", "add pw", "update site x 2", "delete 2", "rotate"} {
		in, _ := ParseInstruction(line)
		_, err := d.Execute(context.Background(), in)
		assert.ErrorIs(t, err, kerrors.ErrNotAuthenticated, line)
	}
	assert.Zero(t, spy.calls)
	assert.Empty(t, v.prompter.prompts)
}

func TestDispatcher_UnlockedCommandsNeedNoLogin(t *testing.T) {
	v := newTestVault(t)
	d := NewDispatcher(v.Vault, DispatcherOptions{AutoLogin: true})
	ctx := context.Background()

	res, err := d.Execute(ctx, Instruction{Command: "craft", Args: []string{"my", "secret", "key"}})
	require.NoError(t, err)
	require.NotNil(t, res.Craft)
	assert.Equal(t, "My$3Cr3tK3y", res.Craft.Password)

	res, err = d.Execute(ctx, Instruction{Command: "help"})
	require.NoError(t, err)
	assert.Len(t, res.Messages, len(commands))

	assert.Empty(t, v.prompter.prompts, "craft and help must not prompt")
	assert.Equal(t, session.StateUninitialized, v.Session.State())
}

func TestDispatcher_ArgumentErrors(t *testing.T) {
	v := newUnlockedVault(t)
	d := NewDispatcher(v.Vault, DispatcherOptions{})
	ctx := context.Background()

	for _, line := range []string{
		"list site",
		"add",
		"update site x",
		"update site x two",
		"delete",
		"delete 5..3",
		"rotate now",
		"craft",
	} {
		in, _ := ParseInstruction(line)
		_, err := d.Execute(ctx, in)
		assert.ErrorIs(t, err, kerrors.ErrInvalidArguments, line)
		assert.False(t, kerrors.IsFatal(err), line)
	}
}

func TestDispatcher_UpdateAlias(t *testing.T) {
	v := newUnlockedVault(t)
	ids := seed(t, v.Vault, "hunter2")
	d := NewDispatcher(v.Vault, DispatcherOptions{})
	ctx := context.Background()

	_, err := d.Execute(ctx, Instruction{Command: "upd", Args: []string{"password", "letmein", "2"}})
	require.NoError(t, err)

	res, err := d.Execute(ctx, Instruction{Command: "list", Args: []string{"password", "letmein"}})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, ids[0], res.Entries[0].ID)

	_, err = d.Execute(ctx, Instruction{Command: "update", Args: []string{"site", "x", "99"}})
	assert.ErrorIs(t, err, kerrors.ErrRecordNotFound)
}

func TestDispatcher_RotateAlias(t *testing.T) {
	v := newUnlockedVault(t)
	seed(t, v.Vault, "hunter2")
	d := NewDispatcher(v.Vault, DispatcherOptions{})

	v.prompter.queue(masterPassphrase, newPassphrase, newPassphrase)
	res, err := d.Execute(context.Background(), Instruction{Command: "chmk"})
	require.NoError(t, err)
	assert.Equal(t, "rotate", res.Command)

	hash, err := v.store.MasterKey(context.Background())
	require.NoError(t, err)
	ok, _, err := secrets.VerifyPassphrase(hash, []byte(newPassphrase))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDispatcher_SourceErrorStopsRun(t *testing.T) {
	v := newUnlockedVault(t)
	d := NewDispatcher(v.Vault, DispatcherOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, lines("list"), &recordingSink{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCommandNames(t *testing.T) {
	names := CommandNames()
	for _, want := range []string{"list", "add", "update", "delete", "rotate", "exit", "del", "upd", "chmk", "craft", "help"} {
		assert.Contains(t, names, want)
	}
}

func TestHelpLines_MentionAliases(t *testing.T) {
	joined := ""
	for _, l := range HelpLines() {
		joined += l + "\n"
	}
	assert.Contains(t, joined, "alias: del")
	assert.Contains(t, joined, "alias: chmk")
}

func TestDispatcher_LoginIsAudited(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.store.SetMasterKey(ctx, secrets.HashPassphrase([]byte(masterPassphrase))))

	v.prompter.queue("wrong", masterPassphrase)
	d := NewDispatcher(v.Vault, DispatcherOptions{})

	require.NoError(t, d.Login(ctx))
	assert.Equal(t, session.StateAuthenticated, v.Session.State())
	assert.Len(t, v.prompter.warnings, 1)

	// A second login is a no-op and prompts for nothing.
	require.NoError(t, d.Login(ctx))

	entries, err := audit.ReadEntries(v.Audit.Path())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "login", entries[0].Operation)
	assert.Equal(t, audit.OutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, secrets.HashBLAKE2b.String(), entries[0].Algorithm)

	// Locked commands now run without AutoLogin.
	res, err := d.Execute(ctx, Instruction{Command: "list"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

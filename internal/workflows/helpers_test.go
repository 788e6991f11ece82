package workflows

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	logger "github.com/PolarWolf314/kaitiaki/internal/logging"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
	"github.com/PolarWolf314/kaitiaki/internal/session"
	"github.com/PolarWolf314/kaitiaki/internal/store"

	"github.com/stretchr/testify/require"
)

const (
	masterPassphrase = "Correct-Horse-9"
	newPassphrase    = "Battery-Staple-7"
)

var testKDF = secrets.KDF{Iterations: 1000, Salt: []byte("test-salt")}

var errScriptExhausted = errors.New("script exhausted")

// scriptedPrompter answers prompts from a queue and records warnings.
type scriptedPrompter struct {
	answers  []string
	prompts  []string
	warnings []string
}

func (p *scriptedPrompter) ReadSecret(prompt string) ([]byte, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.answers) == 0 {
		return nil, errScriptExhausted
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return []byte(answer), nil
}

func (p *scriptedPrompter) Warn(msg string) {
	p.warnings = append(p.warnings, msg)
}

func (p *scriptedPrompter) queue(answers ...string) {
	p.answers = append(p.answers, answers...)
}

type testVault struct {
	*Vault
	prompter *scriptedPrompter
	store    *store.SQLiteStore
	path     string
}

// newTestVault opens a fresh vault file. The session is not authenticated.
func newTestVault(t *testing.T) *testVault {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")

	st, err := store.NewSQLiteStore(path, "", logger.Logger{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return wrapTestVault(t, st, path)
}

func wrapTestVault(t *testing.T, st *store.SQLiteStore, path string) *testVault {
	t.Helper()
	p := &scriptedPrompter{}
	sess := session.New(st, p, session.WithKDF(testKDF))
	t.Cleanup(sess.Close)

	return &testVault{
		Vault: &Vault{
			Store:   st,
			Session: sess,
			Audit:   audit.Open(audit.DefaultPath(path)),
		},
		prompter: p,
		store:    st,
		path:     path,
	}
}

// newUnlockedVault returns a vault whose master key is masterPassphrase,
// already authenticated.
func newUnlockedVault(t *testing.T) *testVault {
	t.Helper()
	v := newTestVault(t)
	v.prompter.queue(masterPassphrase, masterPassphrase)
	require.NoError(t, v.Session.Authenticate(context.Background()))
	return v
}

// seed adds credentials and returns their ids.
func seed(t *testing.T, v *Vault, passwords ...string) []int64 {
	t.Helper()
	var ids []int64
	for i, pw := range passwords {
		site := "site" + string(rune('a'+i))
		res, err := Add(context.Background(), v, AddOptions{Site: &site, Password: pw})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	return ids
}

// spyStore records whether any method touched storage.
type spyStore struct {
	store.Store
	calls int
}

func (s *spyStore) Count(ctx context.Context) (int, error) {
	s.calls++
	return s.Store.Count(ctx)
}

func (s *spyStore) Insert(ctx context.Context, site, username *string, password string) (int64, error) {
	s.calls++
	return s.Store.Insert(ctx, site, username, password)
}

func (s *spyStore) Update(ctx context.Context, field store.Field, value string, id int64) error {
	s.calls++
	return s.Store.Update(ctx, field, value, id)
}

func (s *spyStore) Delete(ctx context.Context, id int64) error {
	s.calls++
	return s.Store.Delete(ctx, id)
}

func (s *spyStore) List(ctx context.Context) ([]store.Record, error) {
	s.calls++
	return s.Store.List(ctx)
}

func (s *spyStore) FindBy(ctx context.Context, field store.Field, value string) ([]store.Record, error) {
	s.calls++
	return s.Store.FindBy(ctx, field, value)
}

func (s *spyStore) Begin(ctx context.Context) (store.Tx, error) {
	s.calls++
	return s.Store.Begin(ctx)
}

var errInjected = errors.New("injected failure")

// failingStore wraps a store so that its transactions fail after a number
// of successful password updates.
type failingStore struct {
	store.Store
	failAfter int
}

func (s *failingStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, remaining: s.failAfter}, nil
}

type failingTx struct {
	store.Tx
	remaining int
}

func (t *failingTx) Update(ctx context.Context, field store.Field, value string, id int64) error {
	if t.remaining == 0 {
		return errInjected
	}
	t.remaining--
	return t.Tx.Update(ctx, field, value, id)
}

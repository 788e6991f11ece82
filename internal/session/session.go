// Package session owns the vault's authentication state and the live field
// cipher derived from the master passphrase.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	logger "github.com/PolarWolf314/kaitiaki/internal/logging"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
)

// MaxLoginAttempts is the number of passphrase entries allowed before lockout.
const MaxLoginAttempts = 3

// Prompts shown to the user.
const (
	PromptPassphrase        = "Master passphrase: "
	PromptNewPassphrase     = "New master passphrase: "
	PromptConfirm           = "Confirm master passphrase: "
	PromptCurrentPassphrase = "Current master passphrase: "
)

// State is a position in the authentication lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingFirstKey
	StateAwaitingLogin
	StateAuthenticated
	StateLockedOut
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingFirstKey:
		return "awaiting-first-key"
	case StateAwaitingLogin:
		return "awaiting-login"
	case StateAuthenticated:
		return "authenticated"
	case StateLockedOut:
		return "locked-out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Prompter reads secrets from the user and shows short diagnostics.
// ReadSecret must not echo the input. Any error it returns aborts the
// current flow with ErrInterrupted.
type Prompter interface {
	ReadSecret(prompt string) ([]byte, error)
	Warn(msg string)
}

// MasterKeyStore is the part of the vault store the session needs.
type MasterKeyStore interface {
	MasterKeyExists(ctx context.Context) (bool, error)
	MasterKey(ctx context.Context) (string, error)
	SetMasterKey(ctx context.Context, hash string) error
	UpdateMasterKey(ctx context.Context, hash string) error
}

// CiphertextSource is implemented by stores that can hand over one stored
// password bundle. The session uses it to confirm a derived key before
// upgrading a legacy hash.
type CiphertextSource interface {
	FirstCiphertext(ctx context.Context) (string, bool, error)
}

// Session holds the authentication state for one process. It is not safe for
// concurrent use.
type Session struct {
	store    MasterKeyStore
	prompter Prompter
	kdf      secrets.KDF
	logger   logger.Logger

	state  State
	cipher *secrets.FieldCipher

	// Algorithm of the stored hash at last successful login.
	algorithm secrets.HashAlgorithm
}

// Option configures a Session.
type Option func(*Session)

// WithKDF overrides the key derivation parameters.
func WithKDF(kdf secrets.KDF) Option {
	return func(s *Session) { s.kdf = kdf }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns a session in StateUninitialized.
func New(store MasterKeyStore, prompter Prompter, opts ...Option) *Session {
	s := &Session{
		store:    store,
		prompter: prompter,
		kdf:      secrets.DefaultKDF,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Algorithm returns the hash algorithm the vault used at login, or zero
// before authentication.
func (s *Session) Algorithm() secrets.HashAlgorithm {
	return s.algorithm
}

// Open inspects storage and moves an uninitialized session to
// StateAwaitingFirstKey or StateAwaitingLogin. Other states are returned unchanged.
func (s *Session) Open(ctx context.Context) (State, error) {
	if s.state != StateUninitialized {
		return s.state, nil
	}

	exists, err := s.store.MasterKeyExists(ctx)
	if err != nil {
		return s.state, err
	}
	if exists {
		s.state = StateAwaitingLogin
	} else {
		s.state = StateAwaitingFirstKey
	}
	s.logger.Debugf("Session opened in state %s", s.state)
	return s.state, nil
}

// Authenticate drives the session to StateAuthenticated. On a new vault it
// creates the master key; on an existing one it allows MaxLoginAttempts
// passphrase entries.
//
// Returns ErrLockedOut (wrapping ErrAuthenticationFailure) once every attempt
// has failed, ErrInterrupted if a prompt is cancelled, and ErrUnknownHashFormat
// if the stored hash cannot be interpreted.
func (s *Session) Authenticate(ctx context.Context) error {
	if _, err := s.Open(ctx); err != nil {
		return err
	}

	switch s.state {
	case StateAuthenticated:
		return nil
	case StateLockedOut:
		return lockedOut()
	case StateAwaitingFirstKey:
		return s.createFirstKey(ctx)
	case StateAwaitingLogin:
		return s.login(ctx)
	default:
		return fmt.Errorf("unexpected session state %s", s.state)
	}
}

func (s *Session) createFirstKey(ctx context.Context) error {
	passphrase, err := s.ReadNewPassphrase(ctx)
	if err != nil {
		return err
	}
	defer secrets.Zero(passphrase)

	if err := s.store.SetMasterKey(ctx, secrets.HashPassphrase(passphrase)); err != nil {
		return err
	}

	if err := s.unlock(passphrase); err != nil {
		return err
	}
	s.algorithm = secrets.StrongestHashAlgorithm
	s.logger.Infof("Master key created")
	return nil
}

func (s *Session) login(ctx context.Context) error {
	stored, err := s.store.MasterKey(ctx)
	if err != nil {
		return err
	}
	if _, err := secrets.IdentifyHash(stored); err != nil {
		return err
	}

	for attempt := 1; attempt <= MaxLoginAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", kerrors.ErrInterrupted, err)
		}

		passphrase, err := s.prompter.ReadSecret(PromptPassphrase)
		if err != nil {
			return fmt.Errorf("%w: %v", kerrors.ErrInterrupted, err)
		}

		ok, algorithm, err := secrets.VerifyPassphrase(stored, passphrase)
		if err != nil {
			secrets.Zero(passphrase)
			return err
		}
		if !ok {
			secrets.Zero(passphrase)
			remaining := MaxLoginAttempts - attempt
			s.logger.Debugf("Login attempt %d failed", attempt)
			if remaining > 0 {
				s.prompter.Warn(fmt.Sprintf("Incorrect passphrase, %d attempt(s) remaining", remaining))
			}
			continue
		}

		err = s.unlock(passphrase)
		if err == nil {
			s.algorithm = algorithm
			if algorithm.Legacy() {
				s.upgradeHash(ctx, passphrase, algorithm)
			}
		}
		secrets.Zero(passphrase)
		return err
	}

	s.state = StateLockedOut
	return lockedOut()
}

// upgradeHash rewrites a legacy master key hash with the strongest algorithm.
// The derived key does not depend on the hash, so stored records are unaffected.
// The hash is left alone when the derived key cannot decrypt the vault's
// records, as with a vault written under other key derivation parameters.
// A failed upgrade is logged and the old hash stays valid.
func (s *Session) upgradeHash(ctx context.Context, passphrase []byte, from secrets.HashAlgorithm) {
	if !s.keyOpensRecords(ctx) {
		s.logger.Warnf("Keeping %s master key hash: stored records do not decrypt with this passphrase", from)
		return
	}
	if err := s.store.UpdateMasterKey(ctx, secrets.HashPassphrase(passphrase)); err != nil {
		s.logger.Warnf("Could not upgrade %s master key hash: %v", from, err)
		return
	}
	s.algorithm = secrets.StrongestHashAlgorithm
	s.logger.Infof("Upgraded master key hash from %s to %s", from, secrets.StrongestHashAlgorithm)
}

// keyOpensRecords reports whether the session key decrypts a stored record.
// A vault without records, or a store that cannot provide one, passes.
func (s *Session) keyOpensRecords(ctx context.Context) bool {
	src, ok := s.store.(CiphertextSource)
	if !ok {
		return true
	}
	bundle, found, err := src.FirstCiphertext(ctx)
	if err != nil {
		s.logger.Debugf("Could not read a record to check the key: %v", err)
		return false
	}
	if !found {
		return true
	}
	_, err = s.cipher.DecryptString(bundle)
	return err == nil
}

func (s *Session) unlock(passphrase []byte) error {
	key := s.kdf.Derive(passphrase)
	defer secrets.Zero(key)

	cipher, err := secrets.NewFieldCipher(key)
	if err != nil {
		return err
	}
	s.cipher = cipher
	s.state = StateAuthenticated
	return nil
}

// ReadNewPassphrase prompts for a new passphrase and its confirmation until
// both match and the passphrase satisfies the strength policy. Weak and
// mismatched entries are reported through the prompter and asked for again.
// The caller owns the returned slice and should zero it.
//
// Returns ErrInterrupted if a prompt fails or ctx is cancelled.
func (s *Session) ReadNewPassphrase(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInterrupted, err)
		}

		first, err := s.prompter.ReadSecret(PromptNewPassphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInterrupted, err)
		}
		if err := secrets.CheckPassphraseStrength(first); err != nil {
			secrets.Zero(first)
			s.prompter.Warn(err.Error())
			continue
		}

		confirm, err := s.prompter.ReadSecret(PromptConfirm)
		if err != nil {
			secrets.Zero(first)
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInterrupted, err)
		}
		match := bytes.Equal(first, confirm)
		secrets.Zero(confirm)
		if !match {
			secrets.Zero(first)
			s.prompter.Warn(kerrors.ErrPassphraseMismatch.Error())
			continue
		}

		return first, nil
	}
}

// Verify checks passphrase against the stored master key hash without
// changing state. Failed checks do not count towards lockout.
//
// Returns ErrNotAuthenticated outside StateAuthenticated and
// ErrAuthenticationFailure when the passphrase does not match.
func (s *Session) Verify(ctx context.Context, passphrase []byte) error {
	if err := s.RequireAuthenticated(); err != nil {
		return err
	}
	stored, err := s.store.MasterKey(ctx)
	if err != nil {
		return err
	}
	ok, _, err := secrets.VerifyPassphrase(stored, passphrase)
	if err != nil {
		return err
	}
	if !ok {
		return kerrors.ErrAuthenticationFailure
	}
	return nil
}

// Reauthenticate asks for the current passphrase again and checks it with
// Verify. It is used before operations that replace the master key.
//
// Returns ErrInterrupted if the prompt is cancelled.
func (s *Session) Reauthenticate(ctx context.Context) error {
	if err := s.RequireAuthenticated(); err != nil {
		return err
	}
	passphrase, err := s.prompter.ReadSecret(PromptCurrentPassphrase)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrInterrupted, err)
	}
	defer secrets.Zero(passphrase)

	return s.Verify(ctx, passphrase)
}

// RequireAuthenticated returns ErrNotAuthenticated unless the session is
// in StateAuthenticated.
func (s *Session) RequireAuthenticated() error {
	if s.state != StateAuthenticated || s.cipher == nil {
		if s.state == StateLockedOut {
			return fmt.Errorf("%w: %w", kerrors.ErrNotAuthenticated, kerrors.ErrLockedOut)
		}
		return kerrors.ErrNotAuthenticated
	}
	return nil
}

// Cipher returns the live field cipher.
func (s *Session) Cipher() (*secrets.FieldCipher, error) {
	if err := s.RequireAuthenticated(); err != nil {
		return nil, err
	}
	return s.cipher, nil
}

// Rekey is a new master key prepared but not yet committed.
type Rekey struct {
	Hash   string
	Cipher *secrets.FieldCipher
}

// Discard destroys the prepared cipher.
func (r *Rekey) Discard() {
	if r != nil {
		r.Cipher.Destroy()
	}
}

// PrepareRekey runs the new-passphrase flow and derives the matching hash and
// cipher. Nothing is written to storage and the session keeps its current key.
func (s *Session) PrepareRekey(ctx context.Context) (*Rekey, error) {
	if err := s.RequireAuthenticated(); err != nil {
		return nil, err
	}

	passphrase, err := s.ReadNewPassphrase(ctx)
	if err != nil {
		return nil, err
	}
	defer secrets.Zero(passphrase)

	key := s.kdf.Derive(passphrase)
	defer secrets.Zero(key)

	cipher, err := secrets.NewFieldCipher(key)
	if err != nil {
		return nil, err
	}
	return &Rekey{Hash: secrets.HashPassphrase(passphrase), Cipher: cipher}, nil
}

// Adopt replaces the live cipher after a committed rotation. The previous key
// is zeroed.
func (s *Session) Adopt(r *Rekey) error {
	if err := s.RequireAuthenticated(); err != nil {
		return err
	}
	if r == nil || r.Cipher == nil {
		return errors.New("no prepared key to adopt")
	}
	s.cipher.Destroy()
	s.cipher = r.Cipher
	s.algorithm = secrets.StrongestHashAlgorithm
	return nil
}

// Close zeroes the key and returns an authenticated session to
// StateUninitialized.
func (s *Session) Close() {
	s.cipher.Destroy()
	s.cipher = nil
	if s.state == StateAuthenticated {
		s.state = StateUninitialized
	}
}

func lockedOut() error {
	return fmt.Errorf("%w: %w", kerrors.ErrLockedOut, kerrors.ErrAuthenticationFailure)
}

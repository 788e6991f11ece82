package workflows

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/kaitiaki/internal/secrets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCheck(t *testing.T, res *DoctorResult, name string) CheckResult {
	t.Helper()
	for _, c := range res.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return CheckResult{}
}

func TestDoctor_HealthyVault(t *testing.T) {
	v := newUnlockedVault(t)
	seed(t, v.Vault, "one", "two")
	require.NoError(t, os.Chmod(filepath.Dir(v.path), 0700))

	res, err := Doctor(context.Background(), v.Vault, DoctorOptions{VaultPath: v.path, AuditPath: v.Audit.Path()})
	require.NoError(t, err)

	assert.Equal(t, CheckPass, findCheck(t, res, "Vault file permissions").Status)
	assert.Equal(t, CheckPass, findCheck(t, res, "Vault directory permissions").Status)
	assert.Equal(t, "Master key is hashed with blake2b", findCheck(t, res, "Master key").Message)
	assert.Equal(t, "All 2 record(s) hold well-formed ciphertext", findCheck(t, res, "Ciphertexts").Message)
	assert.Equal(t, CheckPass, findCheck(t, res, "Audit log").Status)
	assert.Equal(t, DoctorSummary{Passed: 5}, res.Summary)
	assert.Empty(t, res.Suggestions)
}

func TestDoctor_FreshVault(t *testing.T) {
	v := newTestVault(t)

	res, err := Doctor(context.Background(), v.Vault, DoctorOptions{VaultPath: v.path})
	require.NoError(t, err)

	master := findCheck(t, res, "Master key")
	assert.Equal(t, CheckWarning, master.Status)
	assert.Contains(t, res.Suggestions, master.Suggestion)
	assert.Equal(t, "Audit trail is disabled", findCheck(t, res, "Audit log").Message)
	assert.Empty(t, v.prompter.prompts, "doctor must never prompt")
}

func TestDoctor_Problems(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	digest, err := secrets.HashMD5.Sum([]byte(masterPassphrase))
	require.NoError(t, err)
	require.NoError(t, v.store.SetMasterKey(ctx, digest+secrets.HashMD5.Suffix()))
	_, err = v.store.Insert(ctx, nil, nil, "not-a-bundle")
	require.NoError(t, err)
	short := secrets.Bundle{Ciphertext: []byte("x"), Nonce: []byte("short"), Tag: make([]byte, secrets.TagSize)}
	_, err = v.store.Insert(ctx, nil, nil, short.String())
	require.NoError(t, err)
	require.NoError(t, os.Chmod(v.path, 0644))

	res, err := Doctor(ctx, v.Vault, DoctorOptions{VaultPath: v.path})
	require.NoError(t, err)

	perms := findCheck(t, res, "Vault file permissions")
	assert.Equal(t, CheckWarning, perms.Status)
	assert.Contains(t, perms.Suggestion, "chmod 600")

	master := findCheck(t, res, "Master key")
	assert.Equal(t, CheckWarning, master.Status)
	assert.Contains(t, master.Message, "legacy md5")

	ciphertexts := findCheck(t, res, "Ciphertexts")
	assert.Equal(t, CheckError, ciphertexts.Status)
	assert.Contains(t, ciphertexts.Message, "2 record(s) hold malformed ciphertext: 2, 3")
	assert.Equal(t, 1, res.Summary.Errors)
}

func TestDoctor_UnknownHash(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.store.SetMasterKey(ctx, "plainly-not-a-hash"))

	res, err := Doctor(ctx, v.Vault, DoctorOptions{VaultPath: v.path})
	require.NoError(t, err)
	assert.Equal(t, CheckError, findCheck(t, res, "Master key").Status)
}

func TestDoctor_Cancelled(t *testing.T) {
	v := newTestVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Doctor(ctx, v.Vault, DoctorOptions{VaultPath: v.path})
	assert.ErrorIs(t, err, context.Canceled)
}

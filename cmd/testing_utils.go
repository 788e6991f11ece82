// Package cmd contains testing utilities shared between integration tests.
// This file provides common functions for setting up an isolated vault,
// scripting passphrase prompts, and capturing command output.
package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/kaitiaki/internal/configs"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
	"github.com/PolarWolf314/kaitiaki/internal/session"
	"github.com/spf13/cobra"
)

const (
	testPassphrase    = "Correct-Horse-9"
	testNewPassphrase = "Battery-Staple-7"
)

var errScriptExhausted = errors.New("script exhausted")

// scriptedPrompter answers passphrase prompts from a queue.
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

// setupTestEnvironment isolates config and data directories in a temp dir,
// disables colors and installs a scripted prompter. It returns the prompter
// and the vault path the CLI will use by default.
func setupTestEnvironment(t *testing.T) (*scriptedPrompter, string) {
	t.Helper()

	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("HOME", root)
	t.Setenv(configs.EnvConfig, "")
	t.Setenv(configs.EnvVault, "")
	t.Setenv("NO_COLOR", "1")

	prompter := &scriptedPrompter{}
	originalPrompter := newPrompter
	originalOptions := sessionOptions
	newPrompter = func(*cobra.Command) session.Prompter { return prompter }
	sessionOptions = []session.Option{session.WithKDF(secrets.KDF{Iterations: 1000, Salt: []byte("test-salt")})}

	t.Cleanup(func() {
		newPrompter = originalPrompter
		sessionOptions = originalOptions
		ResetGlobalState()
	})

	return prompter, filepath.Join(root, "data", "kaitiaki", "vault.db")
}

// queue appends answers for the next prompts.
func (p *scriptedPrompter) queue(answers ...string) {
	p.answers = append(p.answers, answers...)
}

// executeCLI runs the root command with args, feeding stdin, and returns
// everything written to stdout and stderr.
func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	ResetGlobalState()

	var stdout, stderr bytes.Buffer
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	defer func() {
		RootCmd.SetIn(nil)
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	}()

	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// seedVault creates a vault with the test passphrase and stores one
// credential per site as user-<site> / pw-<site>.
func seedVault(t *testing.T, p *scriptedPrompter, sites ...string) {
	t.Helper()

	for i, site := range sites {
		if i == 0 {
			p.queue(testPassphrase, testPassphrase)
		} else {
			p.queue(testPassphrase)
		}
		if _, stderr, err := executeCLI(t, "", "add", site, "user-"+site, "pw-"+site); err != nil {
			t.Fatalf("Failed to seed %s: %v\n%s", site, err, stderr)
		}
	}
}

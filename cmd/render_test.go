package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rotation", fmt.Errorf("%w: %w", kerrors.ErrRotationAborted, kerrors.ErrAuthenticationFailure), "The vault is unchanged"},
		{"lockout", fmt.Errorf("%w: %w", kerrors.ErrLockedOut, kerrors.ErrAuthenticationFailure), "Too many failed login attempts"},
		{"unknown hash", kerrors.ErrUnknownHashFormat, "format this version does not recognise"},
		{"interrupted", kerrors.ErrInterrupted, "⚠ Cancelled"},
		{"storage", fmt.Errorf("%w: disk full", kerrors.ErrStorage), "directory permissions"},
		{"other", errors.New("boom"), "✗ boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, formatError(tt.err), tt.want)
		})
	}
}

func TestConsoleSinkHelpAndExit(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var out, errOut bytes.Buffer
	sink := newConsoleSink(&out, &errOut)

	sink.Render(&workflows.Result{Command: "help", Messages: workflows.HelpLines()})
	sink.Render(&workflows.Result{Command: "exit", Exit: true})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "Commands:", lines[0])
	assert.Contains(t, out.String(), "(alias: del)")
	assert.NotContains(t, out.String(), "✓", "help lines are not confirmations")
	assert.Equal(t, "(vault locked)", lines[len(lines)-1])
	assert.Empty(t, errOut.String())
	assert.Nil(t, sink.failed)
}

func TestHistorySafe(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"list", true},
		{"list site github", true},
		{"list password hunter2", false},
		{"LIST Password hunter2", false},
		{"add github alice hunter2", false},
		{"update site gitlab 3", true},
		{"upd password n3w 3", false},
		{"craft my secret key", false},
		{"delete 2..4", true},
		{"rotate", true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			in, ok := workflows.ParseInstruction(tt.line)
			assert.True(t, ok)
			assert.Equal(t, tt.want, historySafe(in))
		})
	}
}

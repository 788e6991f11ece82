package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/session"
	"github.com/PolarWolf314/kaitiaki/internal/store"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"

	"github.com/chzyer/readline"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// readlineSource reads instructions from the interactive line editor.
// Instructions that carry a secret are kept out of the history file.
type readlineSource struct {
	rl *readline.Instance
}

func (s readlineSource) Next(ctx context.Context) (workflows.Instruction, error) {
	for {
		if err := ctx.Err(); err != nil {
			return workflows.Instruction{}, err
		}

		line, err := s.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl-C clears a half-typed line; on an empty line it quits.
			if line == "" {
				return workflows.Instruction{}, io.EOF
			}
			continue
		}
		if err != nil {
			return workflows.Instruction{}, err
		}

		in, ok := workflows.ParseInstruction(line)
		if !ok {
			continue
		}
		if historySafe(in) {
			if err := s.rl.SaveHistory(line); err != nil {
				Logger.Debugf("Failed to save history: %v", err)
			}
		}
		return in, nil
	}
}

// historySafe reports whether in can be written to the history file without
// leaking a password.
func historySafe(in workflows.Instruction) bool {
	switch strings.ToLower(in.Command) {
	case "add", "craft":
		return false
	case "list", "update", "upd":
		return len(in.Args) == 0 || !strings.EqualFold(in.Args[0], string(store.FieldPassword))
	default:
		return true
	}
}

// readlinePrompter reads passphrases through the line editor so the
// terminal mode stays consistent with the REPL.
type readlinePrompter struct {
	rl *readline.Instance
}

func (p readlinePrompter) ReadSecret(prompt string) ([]byte, error) {
	return p.rl.ReadPassword(prompt)
}

func (p readlinePrompter) Warn(msg string) {
	fmt.Fprintln(p.rl.Stderr(), ui.Warning.Sprint("⚠")+" "+msg)
}

// newCompleter completes command names, and field names after list and update.
func newCompleter() *readline.PrefixCompleter {
	fields := make([]readline.PrefixCompleterInterface, len(store.Fields))
	for i, f := range store.Fields {
		fields[i] = readline.PcItem(string(f))
	}

	var items []readline.PrefixCompleterInterface
	for _, name := range workflows.CommandNames() {
		switch name {
		case "list", "update", "upd":
			items = append(items, readline.PcItem(name, fields...))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

func printBanner(w io.Writer) {
	banner := figure.NewFigure("Kaitiaki", "standard", true)
	fmt.Fprintln(w)
	fmt.Fprint(w, ui.Success.Sprint(banner.String()))
	fmt.Fprintln(w)
}

func runREPL(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return errorf("Failed to load configuration: %v", err)
	}

	if cfg.UI.HistoryFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.UI.HistoryFile), 0700); err != nil {
			Logger.Warnf("Failed to create history directory: %v", err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 ui.Info.Sprint("kaitiaki") + "> ",
		HistoryFile:            cfg.UI.HistoryFile,
		DisableAutoSaveHistory: true,
		HistorySearchFold:      true,
		AutoComplete:           newCompleter(),
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		return errorf("Failed to start interactive session: %v", err)
	}
	defer rl.Close()

	if cfg.UI.Banner {
		printBanner(rl.Stdout())
	}

	v, err := openVault(cfg, readlinePrompter{rl})
	if err != nil {
		return err
	}
	defer closeVault(v)

	ctx, stop := signalContext(cmd)
	defer stop()

	state, err := v.Session.Open(ctx)
	if err != nil {
		return err
	}
	if state == session.StateAwaitingFirstKey {
		fmt.Fprintln(rl.Stdout(), ui.Info.Sprint("ℹ")+" New vault at "+ui.Path.Sprint(cfg.Vault.Path)+", choose a master passphrase")
	}

	progress := newRotationProgress(cmd.OutOrStdout())
	defer progress.stop()

	d := workflows.NewDispatcher(v, workflows.DispatcherOptions{
		AutoLogin: true,
		Rotate:    workflows.RotateOptions{Progress: progress.update},
	})
	sink := newConsoleSink(rl.Stdout(), rl.Stderr())

	if err := d.Login(ctx); err != nil {
		sink.Fail(err)
		return &reportedError{err}
	}
	fmt.Fprintln(rl.Stdout(), ui.Success.Sprint("✓")+" Vault unlocked, type "+ui.Code.Sprint("help")+" for commands")

	err = d.Run(ctx, readlineSource{rl}, sink)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case kerrors.IsFatal(err):
		return &reportedError{err}
	default:
		return err
	}
}

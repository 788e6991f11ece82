package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	"github.com/PolarWolf314/kaitiaki/internal/configs"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/session"
	"github.com/PolarWolf314/kaitiaki/internal/store"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/utils"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// newPrompter builds the passphrase prompter for one-shot commands.
// Tests replace it with a scripted one.
var newPrompter = func(cmd *cobra.Command) session.Prompter {
	return terminalPrompter{err: cmd.ErrOrStderr()}
}

// sessionOptions are applied to every session after the logger.
// Tests use them to swap in a cheaper key derivation.
var sessionOptions []session.Option

// reportedError marks an error that has already been shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already printed by the command that
// returned it, so main only needs to set the exit code.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// errorf logs the message and returns it as an already reported error.
func errorf(format string, args ...any) error {
	return &reportedError{Logger.ErrorfAndReturn(format, args...)}
}

// loadConfig resolves the configuration from the persistent flags.
func loadConfig() (*configs.Config, error) {
	cfg, err := configs.Load(configs.LoadOptions{
		ConfigPath: configPath,
		VaultPath:  vaultPath,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		Logger.Debugf("Loaded configuration from %s", cfg.Source)
	} else {
		Logger.Debugf("No configuration file found, using defaults")
	}
	return cfg, nil
}

// auditPath returns the audit log location for cfg, or "" when auditing is off.
func auditPath(cfg *configs.Config) string {
	if !cfg.Audit.Enabled {
		return ""
	}
	if cfg.Audit.Path != "" {
		return cfg.Audit.Path
	}
	return audit.DefaultPath(cfg.Vault.Path)
}

// openVault opens the vault cfg points at. Callers must closeVault it.
func openVault(cfg *configs.Config, prompter session.Prompter) (*workflows.Vault, error) {
	Logger.Infof("Opening vault %s", cfg.Vault.Path)
	st, err := store.NewSQLiteStore(cfg.Vault.Path, cfg.Vault.Driver, Logger)
	if err != nil {
		return nil, err
	}

	var trail *audit.Trail
	if path := auditPath(cfg); path != "" {
		trail = audit.Open(path)
		Logger.Debugf("Audit trail %s, session %s", trail.Path(), trail.Session())
	}

	return &workflows.Vault{
		Store:   st,
		Session: session.New(st, prompter, append([]session.Option{session.WithLogger(Logger)}, sessionOptions...)...),
		Audit:   trail,
		Logger:  Logger,
	}, nil
}

// closeVault zeroes the session key and closes the database.
func closeVault(v *workflows.Vault) {
	v.Session.Close()
	if err := v.Store.Close(); err != nil {
		Logger.Warnf("Failed to close vault: %v", err)
	}
	Logger.Debugf("Vault closed")
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// runInstructions opens the vault, logs in when the first instruction needs
// it, and runs every instruction in order.
func runInstructions(cmd *cobra.Command, ins ...workflows.Instruction) error {
	cfg, err := loadConfig()
	if err != nil {
		return errorf("Failed to load configuration: %v", err)
	}

	v, err := openVault(cfg, newPrompter(cmd))
	if err != nil {
		return err
	}
	defer closeVault(v)

	ctx, stop := signalContext(cmd)
	defer stop()

	progress := newRotationProgress(cmd.OutOrStdout())
	defer progress.stop()

	d := workflows.NewDispatcher(v, workflows.DispatcherOptions{
		AutoLogin: true,
		Rotate: workflows.RotateOptions{
			Progress: progress.update,
		},
	})

	sink := newConsoleSink(cmd.OutOrStdout(), cmd.ErrOrStderr())
	src := workflows.Instructions(ins)
	if err := d.Run(ctx, &src, sink); err != nil {
		if kerrors.IsFatal(err) {
			return &reportedError{err}
		}
		return err
	}
	if sink.failed != nil {
		return &reportedError{sink.failed}
	}
	return nil
}

// rotationProgress shows a spinner while records are re-encrypted. The
// spinner starts with the first record so it never overlaps a passphrase
// prompt.
type rotationProgress struct {
	out io.Writer
	s   *spinner.Spinner
}

func newRotationProgress(out io.Writer) *rotationProgress {
	return &rotationProgress{out: out}
}

func (p *rotationProgress) update(done, total int) {
	if p.s == nil {
		p.s, _ = startSpinner(p.out, "Re-encrypting records...")
	}

	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" Re-encrypting records (%d/%d)...", done, total)
	p.s.Unlock()
	Logger.Debugf("Re-encrypted %d of %d record(s)", done, total)

	if done == total {
		p.stop()
	}
}

func (p *rotationProgress) stop() {
	if p.s == nil {
		return
	}
	// Stop is a no-op on a spinner that never started.
	p.s.Stop()
	p.s = nil
}

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(out io.Writer, message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message

	err := s.Color("cyan")
	if err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	// Spinner frames would corrupt piped output such as log --json.
	animate := !verbose && !debug && utils.IsTerminalWriter(out)
	if animate {
		s.Start()
	} else {
		Logger.Infof("Running without spinner: %s", message)
	}

	cleanup := func() {
		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if animate {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}

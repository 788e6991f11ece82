package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logSession   string
	logOperation string
	logSince     string
	logUntil     string
	logOneline   bool
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logSession, "session", "", "filter by session id prefix")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "compact one-line format")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")

	RootCmd.AddCommand(logCmd)
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logSession = ""
	logOperation = ""
	logSince = ""
	logUntil = ""
	logOneline = false
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of vault operations.

Shows which operation ran, when, from which session, and which record ids it
touched. Passwords and passphrases are never logged, so the vault does not
need to be unlocked.

Examples:
  kaitiaki log                              # View full log
  kaitiaki log -n 10                        # Last 10 entries
  kaitiaki log --reverse                    # Most recent first
  kaitiaki log --operation login,rotate     # Filter by operation
  kaitiaki log --since 2024-01-01           # Filter by date
  kaitiaki log --json                       # JSON output`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	cfg, err := loadConfig()
	if err != nil {
		return errorf("Failed to load configuration: %v", err)
	}

	out := cmd.OutOrStdout()
	spinner, cleanup := startSpinner(out, "Loading audit log...")
	defer cleanup()

	opts := workflows.LogOptions{
		Path:       auditPath(cfg),
		Limit:      logLimit,
		Reverse:    logReverse,
		Session:    logSession,
		Operations: logOperation,
		Since:      logSince,
		Until:      logUntil,
	}

	result, err := workflows.Log(context.Background(), opts)
	if err != nil {
		spinner.FinalMSG = formatLogError(err)
		if isLogUnexpectedError(err) {
			return &reportedError{err}
		}
		return nil
	}

	Logger.Debugf("Parsed %d entries from audit log", result.TotalEntriesBeforeFilter)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	if len(result.Entries) == 0 {
		spinner.FinalMSG = "No audit log entries found matching the filters."
		return nil
	}

	// Stop the spinner before writing entries so they don't interleave.
	// Calling cleanup again on return is a no-op.
	cleanup()

	if logJSON {
		return outputLogJSON(out, result.Entries)
	}
	if logOneline {
		outputLogOneline(out, result.Entries)
		return nil
	}
	return outputLogDefault(out, result.Entries)
}

// formatLogError formats a log error for display to the user.
func formatLogError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrAuditLogNotFound):
		return ui.Info.Sprint("ℹ") + " No audit log found. Operations are logged once the vault is used with auditing enabled."

	case errors.Is(err, kerrors.ErrInvalidDateFormat):
		return ui.Error.Sprint("✗") + " " + err.Error()

	default:
		return ui.Error.Sprint("✗") + " Failed to read audit log: " + err.Error()
	}
}

// isLogUnexpectedError returns true if the error is unexpected and should cause a non-zero exit.
func isLogUnexpectedError(err error) bool {
	switch {
	case errors.Is(err, kerrors.ErrAuditLogNotFound),
		errors.Is(err, kerrors.ErrInvalidDateFormat):
		return false
	default:
		return true
	}
}

func outputLogJSON(w io.Writer, entries []audit.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func outputLogOneline(w io.Writer, entries []audit.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s %s %s\n", workflows.FormatDateTime(e.Timestamp), e.Operation, e.Outcome, workflows.FormatDetails(e))
	}
}

func outputLogDefault(w io.Writer, entries []audit.Entry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			workflows.FormatDateTime(e.Timestamp),
			shortSession(e.Session),
			e.Operation,
			e.Outcome,
			workflows.FormatDetails(e),
		}
	}
	return ui.RenderTable(w, []string{"TIME", "SESSION", "OPERATION", "OUTCOME", "DETAILS"}, rows)
}

// shortSession keeps enough of a session id to tell sessions apart.
func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

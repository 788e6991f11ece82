package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/PolarWolf314/kaitiaki/internal/configs"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	doctorJSONOutput bool
	// doctorExitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	doctorExitFunc = os.Exit
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")

	RootCmd.AddCommand(doctorCmd)
}

// resetDoctorCommandState resets flag state. The exit function is left for
// tests to restore with SetDoctorExitFunc.
func resetDoctorCommandState() {
	doctorJSONOutput = false
}

// SetDoctorExitFunc sets the exit function for testing purposes.
func SetDoctorExitFunc(f func(int)) {
	doctorExitFunc = f
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the vault",
	Long: `Runs a series of health checks on the vault and reports issues.
The vault stays locked: no passphrase is asked for.

The doctor command checks:
  - Vault file and directory permissions
  - Master key presence and hash algorithm
  - Ciphertext layout of every record
  - Audit log permissions

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	cfg, err := loadConfig()
	if err != nil {
		return errorf("Failed to load configuration: %v", err)
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(cfg.Vault.Path); os.IsNotExist(err) {
		fmt.Fprintln(out, ui.Info.Sprint("ℹ")+" No vault found at "+ui.Path.Sprint(cfg.Vault.Path))
		fmt.Fprintln(out, ui.Info.Sprint("→")+" Run "+ui.Code.Sprint("kaitiaki")+" to create one")
		return nil
	}

	result, err := checkVault(cmd, cfg)
	if err != nil {
		return errorf("Failed to run health checks: %v", err)
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	if doctorJSONOutput {
		if err := outputDoctorJSON(out, result); err != nil {
			return err
		}
	} else {
		printDoctorResults(out, result)
	}

	// Set exit code based on results.
	if result.Summary.Errors > 0 {
		doctorExitFunc(2)
	} else if result.Summary.Warnings > 0 {
		doctorExitFunc(1)
	}
	return nil
}

// checkVault runs the checks and closes the vault before returning, so the
// exit code is only set once the database is released.
func checkVault(cmd *cobra.Command, cfg *configs.Config) (*workflows.DoctorResult, error) {
	v, err := openVault(cfg, newPrompter(cmd))
	if err != nil {
		return nil, err
	}
	defer closeVault(v)

	ctx, stop := signalContext(cmd)
	defer stop()

	spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Running health checks...")
	defer cleanup()
	spinner.FinalMSG = ""

	return workflows.Doctor(ctx, v, workflows.DoctorOptions{
		VaultPath: cfg.Vault.Path,
		AuditPath: auditPath(cfg),
	})
}

// outputDoctorJSON outputs the result as JSON.
func outputDoctorJSON(w io.Writer, result *workflows.DoctorResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printDoctorResults prints the doctor results in a human-readable format.
func printDoctorResults(w io.Writer, result *workflows.DoctorResult) {
	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Fprintf(w, "%s %s\n", statusIcon, check.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Fprintf(w, ", %s", ui.Warning.Sprint(fmt.Sprintf("%d warning(s)", result.Summary.Warnings)))
	}
	if result.Summary.Errors > 0 {
		fmt.Fprintf(w, ", %s", ui.Error.Sprint(fmt.Sprintf("%d error(s)", result.Summary.Errors)))
	}
	fmt.Fprintln(w)

	if len(result.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Fprintf(w, "  %s %s\n", ui.Info.Sprint("→"), suggestion)
		}
	}
}

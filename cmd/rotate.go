package cmd

import (
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/utils"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	rotateForce bool
)

func init() {
	rotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
	RootCmd.AddCommand(rotateCmd)
}

// resetRotateCommandState resets the rotate command's global state for testing.
func resetRotateCommandState() {
	rotateForce = false
}

var rotateCmd = &cobra.Command{
	Use:     "rotate",
	Aliases: []string{"chmk"},
	Short:   "Change the master passphrase",
	Long: `Replaces the master passphrase and re-encrypts every stored password under
the key derived from the new one.

The command will:
  1. Ask for your current passphrase again
  2. Decrypt every stored password
  3. Ask for the new passphrase (twice)
  4. Re-encrypt every password and store them with the new master key
     in a single transaction

If anything fails before the final step, nothing is changed and the vault
still opens with the current passphrase.

Examples:
  # Rotate with confirmation prompt
  kaitiaki rotate

  # Rotate without confirmation prompt
  kaitiaki rotate --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rotate command")

		if !rotateForce {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s This will re-encrypt every record under a new master passphrase.\n", ui.Warning.Sprint("Warning:"))
			fmt.Fprintln(out, "  Your current passphrase will no longer open the vault.")
			fmt.Fprintln(out)

			ok, err := utils.Confirm(cmd.InOrStdin(), out, "Do you want to continue?")
			if err != nil {
				return errorf("Failed to read confirmation: %v", err)
			}
			if !ok {
				fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" Master key rotation cancelled.")
				return nil
			}
		}

		return runInstructions(cmd, workflows.Instruction{Command: "rotate"})
	},
}

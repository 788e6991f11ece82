package cmd

import (
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:     "update field new_value id",
	Aliases: []string{"upd"},
	Short:   "Change one field of a credential",
	Long: `Replaces site, username or password of the credential with the given id.
A new password is encrypted before it is stored.

Examples:
  kaitiaki update site gitlab 4
  kaitiaki update password N3w-Secret 4`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting update command")
		return runInstructions(cmd, workflows.Instruction{Command: "update", Args: args})
	},
}

package cmd

import (
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:     "delete id... | a..b",
	Aliases: []string{"del"},
	Short:   "Remove credentials by id or range",
	Long: `Deletes the credentials with the given ids. Ranges are inclusive and may be
mixed with single ids. Ids that do not exist are reported and skipped.

Examples:
  kaitiaki delete 4
  kaitiaki delete 2 7 9
  kaitiaki delete 3..6 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting delete command")
		return runInstructions(cmd, workflows.Instruction{Command: "delete", Args: args})
	},
}

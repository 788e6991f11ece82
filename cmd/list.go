package cmd

import (
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [field value]",
	Short: "Show stored credentials",
	Long: `Decrypts and shows every stored credential, or only those whose field
matches value exactly. Fields are id, site, username and password.

Examples:
  kaitiaki list
  kaitiaki list site github
  kaitiaki list username alice@example.com`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")
		return runInstructions(cmd, workflows.Instruction{Command: "list", Args: args})
	},
}

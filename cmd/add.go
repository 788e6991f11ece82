package cmd

import (
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [site] [username] password",
	Short: "Store a new credential",
	Long: `Encrypts password under the master key and stores it with the optional
site and username. With two arguments they are taken as username and password.

Passwords starting with "-" must follow "--" so they are not read as flags.

Examples:
  kaitiaki add github alice s3cret-Pass
  kaitiaki add alice s3cret-Pass
  kaitiaki add -- -leading-dash`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting add command")
		return runInstructions(cmd, workflows.Instruction{Command: "add", Args: args})
	},
}

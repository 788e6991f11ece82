package cmd

import (
	"fmt"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	logger "github.com/PolarWolf314/kaitiaki/internal/logging"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose    bool
	debug      bool
	configPath string
	vaultPath  string
	execute    string
	Logger     logger.Logger

	RootCmd = &cobra.Command{
		Use:   "kaitiaki",
		Short: "Kaitiaki - a local, encrypted credential vault.",
		Long: `Kaitiaki keeps site credentials in a local SQLite vault. Every password is
encrypted with a key derived from your master passphrase, which is never stored.

Run without arguments to open an interactive session, or use a subcommand
(or --execute) to run a single instruction.

Examples:
  # Open the interactive vault
  kaitiaki

  # Run one instruction and exit
  kaitiaki -e "list site github"

  # The same, as a subcommand
  kaitiaki list site github`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
		RunE: runRoot,
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is <config dir>/kaitiaki/config.toml)")
	RootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "vault database file (overrides vault.path)")
	RootCmd.Flags().StringVarP(&execute, "execute", "e", "", "run a single instruction and exit")
}

func runRoot(cmd *cobra.Command, args []string) error {
	if execute == "" {
		return runREPL(cmd)
	}

	in, ok := workflows.ParseInstruction(execute)
	if !ok {
		return fmt.Errorf("%w: --execute needs an instruction", kerrors.ErrInvalidArguments)
	}
	return runInstructions(cmd, in)
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	vaultPath = ""
	execute = ""
	resetRotateCommandState()
	resetCraftCommandState()
	resetLogCommandState()
	resetDoctorCommandState()
	resetConfigInitState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears the Changed mark on every flag of c and its
// subcommands to prevent test pollution.
func resetCobraFlagState(c *cobra.Command) {
	reset := func(flag *pflag.Flag) { flag.Changed = false }
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCobraFlagState(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}

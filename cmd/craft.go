package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/kaitiaki/internal/secrets"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	craftSeparator string
	craftCopy      bool
)

// writeClipboard is replaced in tests, which have no clipboard.
var writeClipboard = clipboard.WriteAll

func init() {
	craftCmd.Flags().StringVar(&craftSeparator, "separator", secrets.DefaultCraftSeparator, "string that splits the phrase into words")
	craftCmd.Flags().BoolVar(&craftCopy, "copy", false, "copy the crafted password to the clipboard")
	RootCmd.AddCommand(craftCmd)
}

// resetCraftCommandState resets the craft command's global state for testing.
func resetCraftCommandState() {
	craftSeparator = secrets.DefaultCraftSeparator
	craftCopy = false
}

var craftCmd = &cobra.Command{
	Use:   "craft phrase...",
	Short: "Turn a memorable phrase into a stronger password",
	Long: `Substitutes look-alike symbols into a phrase (a→4, e→3, i→1, o→0, u→(), s→$),
capitalises each word and joins them. The vault is not opened and nothing is
stored.

Examples:
  kaitiaki craft my secret key
  kaitiaki craft --separator - sunny-days --copy`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting craft command")

		res, err := workflows.Craft(workflows.CraftOptions{
			Phrase:    strings.Join(args, " "),
			Separator: craftSeparator,
		})
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), formatError(err))
			return &reportedError{err}
		}

		renderCraft(cmd.OutOrStdout(), res)

		if craftCopy {
			if err := writeClipboard(res.Password); err != nil {
				Logger.Warnf("Failed to copy to clipboard: %v", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success.Sprint("✓")+" Copied to clipboard")
		}
		return nil
	},
}

package main

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/kaitiaki/cmd"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		if !cmd.IsReported(err) {
			fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" "+err.Error())
		}
		os.Exit(1)
	}
}

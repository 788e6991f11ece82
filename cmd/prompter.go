package cmd

import (
	"fmt"
	"io"

	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/utils"
)

// terminalPrompter reads passphrases from the controlling terminal without echo.
type terminalPrompter struct {
	err io.Writer
}

func (p terminalPrompter) ReadSecret(prompt string) ([]byte, error) {
	return utils.ReadPassphrase(prompt)
}

func (p terminalPrompter) Warn(msg string) {
	fmt.Fprintln(p.err, ui.Warning.Sprint("⚠")+" "+msg)
}

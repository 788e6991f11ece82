package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
)

// consoleSink prints dispatcher results for a human.
type consoleSink struct {
	out    io.Writer
	errOut io.Writer

	// failed is the last error passed to Fail.
	failed error
}

func newConsoleSink(out, errOut io.Writer) *consoleSink {
	return &consoleSink{out: out, errOut: errOut}
}

func (s *consoleSink) Render(r *workflows.Result) {
	switch r.Command {
	case "list":
		s.renderEntries(r.Entries)
	case "help":
		fmt.Fprintln(s.out, "Commands:")
		for _, line := range r.Messages {
			fmt.Fprintln(s.out, "  "+line)
		}
		return
	case "exit":
		fmt.Fprintln(s.out, ui.Muted.Sprint("vault locked"))
		return
	}

	if r.Craft != nil {
		renderCraft(s.out, r.Craft)
	}
	for _, msg := range r.Messages {
		fmt.Fprintln(s.out, ui.Success.Sprint("✓")+" "+msg)
	}
	for _, problem := range r.Problems {
		fmt.Fprintln(s.errOut, ui.Warning.Sprint("⚠")+" "+problem.Error())
	}
}

func (s *consoleSink) Fail(err error) {
	s.failed = err
	fmt.Fprintln(s.errOut, formatError(err))
}

func (s *consoleSink) renderEntries(entries []workflows.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(s.out, ui.Info.Sprint("ℹ")+" No matching records")
		return
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{strconv.FormatInt(e.ID, 10), e.Site, e.Username, e.Password}
	}
	if err := ui.RenderTable(s.out, []string{"ID", "SITE", "USERNAME", "PASSWORD"}, rows); err != nil {
		Logger.Warnf("Failed to render records: %v", err)
		return
	}
	fmt.Fprintln(s.out, ui.Muted.Sprintf("%d record(s)", len(entries)))
}

func renderCraft(w io.Writer, res *workflows.CraftResult) {
	fmt.Fprintln(w, ui.Success.Sprint("✓")+" Crafted password: "+ui.Highlight.Sprint(res.Password))
	if res.Weakness != nil {
		fmt.Fprintln(w, ui.Warning.Sprint("⚠")+" Still weak: "+res.Weakness.Error())
	}
}

// formatError turns a workflow error into a message and, where the user can
// do something about it, a hint.
func formatError(err error) string {
	cross := ui.Error.Sprint("✗") + " "
	hint := ui.Info.Sprint("→") + " "

	switch {
	case errors.Is(err, kerrors.ErrRotationAborted):
		return cross + err.Error() + "\n" +
			hint + "The vault is unchanged and still opens with your current passphrase"

	case errors.Is(err, kerrors.ErrLockedOut):
		return cross + "Too many failed login attempts, the vault stays locked\n" +
			hint + "Start " + ui.Code.Sprint("kaitiaki") + " again to retry"

	case errors.Is(err, kerrors.ErrCommandNotFound):
		return cross + err.Error() + "\n" +
			hint + "Run " + ui.Code.Sprint("help") + " to see available commands"

	case errors.Is(err, kerrors.ErrUnknownHashFormat):
		return cross + "The stored master key is in a format this version does not recognise\n" +
			hint + "Check that " + ui.Code.Sprint("--vault") + " points at a kaitiaki vault"

	case errors.Is(err, kerrors.ErrInterrupted):
		return ui.Warning.Sprint("⚠") + " Cancelled"

	case errors.Is(err, kerrors.ErrStorage):
		return cross + err.Error() + "\n" +
			hint + "Check the vault file and its directory permissions"

	case errors.Is(err, kerrors.ErrInvalidField):
		return cross + err.Error() + "\n" +
			hint + "Fields are " + ui.Code.Sprint("id") + ", " + ui.Code.Sprint("site") + ", " +
			ui.Code.Sprint("username") + " and " + ui.Code.Sprint("password")

	default:
		return cross + err.Error()
	}
}

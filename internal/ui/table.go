package ui

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// RenderTable writes rows as left-aligned columns under a header line.
// Empty cells are shown as "-".
func RenderTable(w io.Writer, headers []string, rows [][]string) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == "" {
				cell = "-"
			}
			cells[i] = sanitizeCell(cell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Color is applied after alignment so escape codes don't count as width.
	header, body, _ := strings.Cut(buf.String(), "\n")
	_, err := fmt.Fprintf(w, "%s\n%s", Header.Sprint(strings.TrimRight(header, " ")), body)
	return err
}

// sanitizeCell keeps stored values from breaking the column layout.
func sanitizeCell(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}

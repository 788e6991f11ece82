package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter colors one kind of output. When colors are off it falls back to
// wrapping the text in a prefix and suffix, which may both be empty.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// plain returns a formatter that only colors.
func plain(attrs ...color.Attribute) Formatter {
	return Formatter{color: color.New(attrs...)}
}

// wrapped returns a formatter that wraps its text when colors are off.
func wrapped(prefix, suffix string, attrs ...color.Attribute) Formatter {
	return Formatter{color: color.New(attrs...), prefix: prefix, suffix: suffix}
}

func (f Formatter) Sprint(a ...any) string {
	return f.apply(fmt.Sprint(a...))
}

func (f Formatter) Sprintf(format string, a ...any) string {
	return f.apply(fmt.Sprintf(format, a...))
}

func (f Formatter) apply(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline appends "\n" unless s already ends with one.
func EnsureNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s
	}
	return s + "\n"
}

// noColor honors NO_COLOR (https://no-color.org/) and fatih/color's own
// terminal detection.
func noColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return true
	}
	return color.NoColor
}

var (
	// Code is for instructions and commands the user can type.
	Code = wrapped("`", "`", color.FgYellow)
	// Path is for vault, config and audit log locations.
	Path = plain(color.FgYellow)

	// Status markers: ✓, ✗, ⚠ and → or ℹ.
	Success = plain(color.FgGreen)
	Error   = plain(color.FgRed)
	Warning = plain(color.FgYellow)
	Info    = plain(color.FgCyan)

	// Highlight is for values worth copying, like a crafted password.
	Highlight = wrapped("'", "'", color.FgCyan)
	// Muted is for counts and secondary notes.
	Muted = wrapped("(", ")", color.FgHiBlack)
	// Header is for table column names.
	Header = plain(color.FgBlue, color.Bold)
)

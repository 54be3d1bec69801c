package ui

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/arthur-debert/devplug/pkg/errors"
)

// Format selects how command results are rendered. It is chosen with the
// global -o flag or general.output in the config file.
type Format int

const (
	// FormatAuto defers the choice to Resolve.
	FormatAuto Format = iota
	// FormatTerminal draws styled tables for an interactive terminal.
	FormatTerminal
	// FormatText prints plain aligned columns, safe for pipes and CI logs.
	FormatText
	// FormatJSON writes one JSON document per result for scripts.
	FormatJSON
)

// formatNames lists each format's canonical name first, then the aliases
// ParseFormat also accepts.
var formatNames = []struct {
	format Format
	names  []string
}{
	{FormatAuto, []string{"auto", ""}},
	{FormatTerminal, []string{"term", "terminal"}},
	{FormatText, []string{"text", "plain"}},
	{FormatJSON, []string{"json"}},
}

// String returns the canonical name, the one ParseFormat round-trips.
func (f Format) String() string {
	for _, entry := range formatNames {
		if entry.format == f {
			return entry.names[0]
		}
	}
	return "unknown"
}

// FormatNames returns the canonical names in flag order, for help text
// and shell completion.
func FormatNames() []string {
	out := make([]string, 0, len(formatNames))
	for _, entry := range formatNames {
		out = append(out, entry.names[0])
	}
	return out
}

// ParseFormat accepts a canonical name or alias, case-insensitively.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, entry := range formatNames {
		for _, name := range entry.names {
			if name == s {
				return entry.format, nil
			}
		}
	}
	return FormatAuto, errors.Newf(errors.ErrInvalidInput, "unknown format: %s", s).
		WithDetail("accepted", strings.Join(FormatNames(), ", "))
}

// Resolve turns FormatAuto into a concrete format for output. Only an
// *os.File can be a terminal; any other writer gets text. Concrete formats
// are returned unchanged.
func (f Format) Resolve(output io.Writer) Format {
	if f != FormatAuto {
		return f
	}
	if file, ok := output.(*os.File); ok {
		return DetectFormat(file)
	}
	return FormatText
}

// DetectFormat picks terminal output only for a color-capable terminal
// with NO_COLOR unset and TERM not dumb. Everything else, including pipes
// into `eval` or CI logs, gets plain text.
func DetectFormat(output *os.File) Format {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return FormatText
	}
	if !isatty.IsTerminal(output.Fd()) && !isatty.IsCygwinTerminal(output.Fd()) {
		return FormatText
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}

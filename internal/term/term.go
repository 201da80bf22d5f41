// Package term resolves whether ANSI colors should be used and provides the
// palette consumed by the logging and display packages.
//
// The palette is a value, not package state: [NewPalette] is called once by
// the logger and the result is shared read-only. A disabled palette holds
// empty strings, so concatenation is a no-op.
package term

import (
	"os"
	"strings"

	"github.com/backmassage/kramtex/internal/config"
)

// Palette holds the ANSI sequences for each log level color.
type Palette struct {
	Red     string
	Green   string
	Yellow  string
	Orange  string
	Blue    string
	Cyan    string
	Magenta string
	Reset   string
}

var ansi = Palette{
	Red:     "\033[1;91m",
	Green:   "\033[1;92m",
	Yellow:  "\033[1;93m",
	Orange:  "\033[1;38;5;208m",
	Blue:    "\033[1;94m",
	Cyan:    "\033[1;96m",
	Magenta: "\033[1;95m",
	Reset:   "\033[0m",
}

// NewPalette returns the ANSI palette when colors are enabled for mode and
// out, or the zero Palette otherwise.
func NewPalette(mode config.ColorMode, out *os.File) Palette {
	if Resolve(mode, out) {
		return ansi
	}
	return Palette{}
}

// Enabled reports whether p carries color sequences.
func (p Palette) Enabled() bool { return p.Reset != "" }

// Paint wraps s in color when the palette is enabled.
func (p Palette) Paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + p.Reset
}

// Resolve determines whether colors should be enabled based on the configured
// mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func Resolve(mode config.ColorMode, out *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return IsTerminal(out) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

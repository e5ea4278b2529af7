package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary lipgloss.Color = "7" // White/default
	ColorMuted   lipgloss.Color = "8" // Gray (bright black)
)

// ConfigureColor picks the color profile for output written to f.
// Color is off when noColor is set, NO_COLOR is present, or f is not a TTY.
func ConfigureColor(noColor bool, f *os.File) {
	if ColorDisabled(noColor, f) {
		DisableColors()
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(f).EnvColorProfile())
}

// ColorDisabled reports whether styled output should be plain for f.
func ColorDisabled(noColor bool, f *os.File) bool {
	if noColor {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return f == nil || !term.IsTerminal(int(f.Fd()))
}

// DisableColors switches Lip Gloss to monochrome output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for diagnostics on dark terminal backgrounds.
const (
	ColorMuted = lipgloss.Color("#6B7280")
	ColorError = lipgloss.Color("#EF4444")
)

type styles struct {
	Error lipgloss.Style
	Muted lipgloss.Style
}

// newStyles renders for w. Styles are plain unless color is wanted and w is
// a terminal.
func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color || !isTerminal(w) {
		plain := r.NewStyle()
		return styles{Error: plain, Muted: plain}
	}
	return styles{
		Error: r.NewStyle().Bold(true).Foreground(ColorError),
		Muted: r.NewStyle().Foreground(ColorMuted),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// newStyles builds styles bound to w. Without a terminal every style renders
// plain text.
func newStyles(w io.Writer, isTTY bool) *Styles {
	lr := lipgloss.NewRenderer(w)
	if !isTTY {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		Header:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Error:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
	}
}

package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles are bound to one output so color detection follows that writer.
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
	box     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   r.NewStyle().Width(14).Foreground(lipgloss.Color("8")),
		value:   r.NewStyle().Foreground(lipgloss.Color("15")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1),
	}
}

// row renders one "label value" line.
func (s styles) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(label), s.value.Render(value))
}

package commands

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorIris  = lipgloss.Color("#5D3FD3")
	colorSlate = lipgloss.Color("#667085")
	colorGreen = lipgloss.Color("42")
	colorAmber = lipgloss.Color("214")
	colorRed   = lipgloss.Color("196")
)

// styles are bound to one output so colour is dropped when it is not a terminal.
type styles struct {
	id      lipgloss.Style
	dim     lipgloss.Style
	high    lipgloss.Style
	medium  lipgloss.Style
	low     lipgloss.Style
	warning lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		id: r.NewStyle().
			Foreground(colorIris).
			Bold(true),
		dim: r.NewStyle().
			Foreground(colorSlate),
		high: r.NewStyle().
			Foreground(colorGreen),
		medium: r.NewStyle().
			Foreground(colorAmber),
		low: r.NewStyle().
			Foreground(colorRed).
			Bold(true),
		warning: r.NewStyle().
			Foreground(colorAmber),
	}
}

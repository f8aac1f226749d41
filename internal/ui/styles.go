package ui

import "github.com/charmbracelet/lipgloss"

// ANSI-256 palette, single cyan accent.
const (
	colorAccent    = "51"  // bright cyan
	colorAccentDim = "30"  // muted cyan for stage labels
	colorGray      = "245" // secondary text
	colorDarkGray  = "238" // separators, de-emphasized paths
	colorRed       = "196"
	colorYellow    = "220"
)

// Styles holds the lipgloss styles the TUI renderer draws with.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Stage   lipgloss.Style
	Active  lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Stage:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccentDim)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
	}
}

// NoColorStyles returns an unstyled set for NO_COLOR terminals and plain
// output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Stage:   lipgloss.NewStyle(),
		Active:  lipgloss.NewStyle(),
	}
}

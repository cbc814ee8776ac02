package display

import "github.com/charmbracelet/lipgloss"

// Theme defines colors and symbols for interactive terminal output. Fields
// are limited to what the console display actually renders — a task's
// start line (Arrow/Cyan), its stage updates (Dim), and its completion
// (Bullet/Green).
type Theme struct {
	Cyan  lipgloss.Style
	Green lipgloss.Style
	Dim   lipgloss.Style

	Bullet string
	Arrow  string
}

// DefaultTheme returns the standard raven color scheme.
func DefaultTheme() *Theme {
	return &Theme{
		Cyan:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Green: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Dim:   lipgloss.NewStyle().Faint(true),

		Bullet: "•",
		Arrow:  "->",
	}
}

// Styled renders text with the given style.
func (t *Theme) Styled(style lipgloss.Style, text string) string {
	return style.Render(text)
}

package main

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#00D7FF")
	successColor   = lipgloss.Color("#04B575")
	warningColor   = lipgloss.Color("#FFA500")
	errorColor     = lipgloss.Color("#FF4B4B")
	mutedColor     = lipgloss.Color("#666666")
	borderColor    = lipgloss.Color("#383838")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Background(lipgloss.Color("#1A1A1A")).
			Padding(0, 1)

	bufferStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)

	strategyStyle = lipgloss.NewStyle().
			Foreground(successColor)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(warningColor)

	flagsStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	totalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Background(lipgloss.Color("#1A1A1A")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
)

// paint renders s with st, or plain when --no-color is set.
func paint(st lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return st.Render(s)
}

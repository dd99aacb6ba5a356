package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy   = lipgloss.Color("#1B2B4B")
	ColorWhite  = lipgloss.Color("#FFFFFF")
	ColorGray   = lipgloss.Color("#8A8F98")
	ColorRed    = lipgloss.Color("#E5484D")
	ColorGreen  = lipgloss.Color("#49E209")
	ColorTeal   = lipgloss.Color("#00CAC7")
	ColorYellow = lipgloss.Color("#F5D90A")
)

var (
	badgeStyle = lipgloss.NewStyle().
			Background(ColorRed).
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1)

	badgeOffStyle = lipgloss.NewStyle().
			Background(ColorGray).
			Foreground(ColorNavy).
			Padding(0, 1)

	clockStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	taskNameStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(ColorGray)

	errorStyle = lipgloss.NewStyle().Foreground(ColorRed)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorNavy).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(ColorTeal).
			Bold(true)

	barStyle = lipgloss.NewStyle().Foreground(ColorTeal)

	barHelpStyle = lipgloss.NewStyle().Foreground(ColorYellow)
)

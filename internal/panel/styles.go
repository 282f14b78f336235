package panel

import "github.com/charmbracelet/lipgloss"

var (
	accent    = lipgloss.Color("#FFB3BA")
	mintGreen = lipgloss.Color("#A8E6CF")
	mutedGray = lipgloss.Color("#6B7280")
	errorRed  = lipgloss.Color("#F87171")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	statusStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Padding(0, 1)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(errorRed).
				Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

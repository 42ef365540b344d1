package ui

import "github.com/charmbracelet/lipgloss"

var (
	companionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
	transcriptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
	decorationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("136"))
	flagOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
	flagOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

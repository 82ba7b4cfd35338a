package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/ideacards/internal/idea"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))

	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	modalStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("212")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

var statusColors = map[idea.Status]lipgloss.Color{
	idea.StatusActive:   lipgloss.Color("42"),
	idea.StatusExecute:  lipgloss.Color("214"),
	idea.StatusTransfer: lipgloss.Color("39"),
	idea.StatusDeleted:  lipgloss.Color("241"),
}

func statusBadge(s idea.Status) string {
	return lipgloss.NewStyle().Bold(true).Foreground(statusColors[s]).Render("[" + string(s) + "]")
}

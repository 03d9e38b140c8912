package tui

import (
	"github.com/charmbracelet/lipgloss"
)

func pageLayout(content string) string {
	return lipgloss.NewStyle().
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, content))
}

package tui

import (
	"github.com/charmbracelet/lipgloss"
)

func lightGreen() lipgloss.Color {
	return lipgloss.Color("#8FD694")
}

func darkGreen() lipgloss.Color {
	return lipgloss.Color("#2E8B57")
}

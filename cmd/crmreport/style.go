package main

import (
	"github.com/charmbracelet/lipgloss"
)

// Terminal styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#AAAAAA")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444444"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(22)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// kv renders an indented label/value line.
func kv(label, value string) string {
	return "  " + labelStyle.Render(label+":") + " " + value
}

// row renders cells padded to the given widths.
func row(widths []int, cells ...string) string {
	out := ""
	for i, c := range cells {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		out += lipgloss.NewStyle().Width(w).Render(c)
		if i < len(cells)-1 {
			out += " "
		}
	}
	return out
}

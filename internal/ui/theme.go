// Package ui renders vibery's terminal output: styled status lines,
// tables, a transfer spinner and markdown previews.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

// Color palette.
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#A78BFA") // Light purple
	colorSuccess   = lipgloss.Color("#10B981") // Green
	colorDanger    = lipgloss.Color("#EF4444") // Red
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorBorder    = lipgloss.Color("#374151") // Dark gray
	colorWarning   = lipgloss.Color("#F59E0B") // Amber
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSecondary)

	sectionRuleStyle = lipgloss.NewStyle().
				Foreground(colorBorder)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F3F4F6"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	badgeStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorDanger)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)
)

// typeIcons decorates list and search output per template type.
var typeIcons = map[catalog.Type]string{
	catalog.TypeAgent:   "🤖",
	catalog.TypeCommand: "⚡",
	catalog.TypeMCP:     "🔌",
	catalog.TypeSetting: "⚙️",
	catalog.TypeHook:    "🪝",
	catalog.TypeSkill:   "🎨",
}

// Icon returns the icon for a template type.
func Icon(t catalog.Type) string {
	if icon, ok := typeIcons[t]; ok {
		return icon
	}
	return "📦"
}

// renderSectionHeader renders a label between short rules:
// "── Agents (3) ──".
func renderSectionHeader(label string) string {
	rule := sectionRuleStyle.Render("──")
	return rule + sectionHeaderStyle.Render(" "+label+" ") + rule
}

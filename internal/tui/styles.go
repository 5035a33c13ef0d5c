package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vendapay/teamwizard/pkg/wizard"
)

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#4338ca", Dark: "#818cf8"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#fbbf24"}
	colorError   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#d1d5db", Dark: "#4b5563"}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	stepActive    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	stepCompleted = lipgloss.NewStyle().Foreground(colorSuccess)
	stepPending   = lipgloss.NewStyle().Foreground(colorMuted)

	progressFull  = lipgloss.NewStyle().Foreground(colorAccent)
	progressEmpty = lipgloss.NewStyle().Foreground(colorBorder)

	labelStyle    = lipgloss.NewStyle().Bold(true)
	labelFocused  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	requiredMark  = lipgloss.NewStyle().Foreground(colorError)
	invalidStyle  = lipgloss.NewStyle().Foreground(colorError)
	helpStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	promptStyle   = lipgloss.NewStyle().Foreground(colorAccent)
	placeholderSt = lipgloss.NewStyle().Foreground(colorMuted)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)
)

var strengthStyles = map[wizard.Strength]lipgloss.Style{
	wizard.StrengthWeak:   lipgloss.NewStyle().Foreground(colorError),
	wizard.StrengthMedium: lipgloss.NewStyle().Foreground(colorWarning),
	wizard.StrengthStrong: lipgloss.NewStyle().Foreground(colorSuccess),
}

package terminal

import "github.com/charmbracelet/lipgloss"

var (
	colorUser      = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#60a5fa"}
	colorAssistant = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorError     = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	colorWarn      = lipgloss.AdaptiveColor{Light: "#d97706", Dark: "#fbbf24"}

	colorBright = lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#f1f5f9"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#94a3b8", Dark: "#64748b"}
)

var (
	styleUserBadge      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	styleAssistantBadge = lipgloss.NewStyle().Foreground(colorAssistant).Bold(true)

	styleTitle     = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleQuestion  = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleMeta      = lipgloss.NewStyle().Foreground(colorDim)
	styleHint      = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	styleError     = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarn      = lipgloss.NewStyle().Foreground(colorWarn)
	styleSeparator = lipgloss.NewStyle().Foreground(colorDim)
)

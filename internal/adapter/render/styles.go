package render

import "github.com/charmbracelet/lipgloss"

var (
	colorUser      = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	colorAssistant = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	colorSuccess   = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	colorWarning   = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	colorMuted     = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
)

var (
	userLabel      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	assistantLabel = lipgloss.NewStyle().Foreground(colorAssistant).Bold(true)
	toolName       = lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
	toolDone       = lipgloss.NewStyle().Foreground(colorSuccess)
	diagnostic     = lipgloss.NewStyle().Foreground(colorWarning)
	streaming      = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	toolBlock      = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(colorMuted).
			PaddingLeft(1)
)

const (
	symbolTool    = "⚙"
	symbolDone    = "✓"
	symbolWarning = "⚠"
)

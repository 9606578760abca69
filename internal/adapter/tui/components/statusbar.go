package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"creator-chat/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Send"
}

// StatusBarModel renders a bottom status bar with keybinding hints on the
// left and conversation info on the right.
type StatusBarModel struct {
	Hints  []KeyHint
	ChatID string
	Tools  []ToolToggle
	Alert  string // backend health warning; empty when healthy
	Extra  string // additional status text (e.g. "Sending...")
	width  int
}

// ToolToggle is one capability toggle shown in the status bar.
type ToolToggle struct {
	Label string
	On    bool
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		key := theme.StatusKey.Render(h.Key)
		hints = append(hints, key+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var right []string
	for _, t := range m.Tools {
		sym, style := theme.SymbolOff, theme.TextMuted
		if t.On {
			sym, style = theme.SymbolOn, theme.TextSuccess
		}
		right = append(right, style.Render(sym+" "+t.Label))
	}
	if m.Alert != "" {
		right = append(right, theme.TextError.Render(theme.SymbolError+" "+m.Alert))
	}
	if m.ChatID != "" {
		right = append(right, theme.TextMuted.Render(m.ChatID))
	}
	if m.Extra != "" {
		right = append(right, theme.TextInfo.Render(m.Extra))
	}
	rightStr := strings.Join(right, "  ")

	// Join left and right, padding the gap.
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	if gap < 1 {
		gap = 1
	}

	bar := left + strings.Repeat(" ", gap) + rightStr
	return theme.StatusBar.Width(m.width).Render(bar)
}

// Package components holds reusable TUI building blocks.
package components

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ChatViewModel wraps a viewport with smart auto-scroll behavior.
// Auto-scroll is active when the user is at the bottom.
// If the user scrolls up, auto-scroll pauses.
// It resumes when the user scrolls back to the bottom.
type ChatViewModel struct {
	Viewport viewport.Model
	content  string
	ready    bool
	atBottom bool
}

// NewChatView creates a chat view. The viewport is initialized lazily on the first SetSize.
func NewChatView() ChatViewModel {
	return ChatViewModel{atBottom: true}
}

// SetSize sets the viewport dimensions.
func (m *ChatViewModel) SetSize(w, h int) {
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.Viewport.SetContent(m.content)
}

// SetContent replaces the rendered transcript and scrolls to bottom if
// auto-scroll is active.
func (m *ChatViewModel) SetContent(content string) {
	m.content = content
	if !m.ready {
		return
	}
	m.Viewport.SetContent(content)
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// Content returns the last content set.
func (m ChatViewModel) Content() string { return m.content }

// Update handles viewport scrolling and tracks auto-scroll state.
func (m ChatViewModel) Update(msg tea.Msg) (ChatViewModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	m.atBottom = m.Viewport.AtBottom()
	return m, cmd
}

// View renders the chat viewport.
func (m ChatViewModel) View() string {
	if !m.ready {
		return "  Initializing..."
	}
	return m.Viewport.View()
}

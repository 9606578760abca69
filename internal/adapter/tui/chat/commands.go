package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"creator-chat/internal/domain"
)

// sendCmd runs the send pipeline in a background goroutine. text and caps
// are captured at submit time.
func sendCmd(ctx context.Context, s Sender, chatID, text string, caps domain.Capabilities) tea.Cmd {
	return func() tea.Msg {
		msg, err := s.Send(ctx, chatID, text, caps)
		return sendDoneMsg{text: text, msg: msg, err: err}
	}
}

func revalidateCmd(ctx context.Context, c Conversation) tea.Cmd {
	return func() tea.Msg {
		return revalidatedMsg{err: c.Revalidate(ctx)}
	}
}

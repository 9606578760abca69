// Package chat implements the Bubble Tea chat screen: the transcript of one
// conversation with live streaming parts and a composer.
package chat

import "creator-chat/internal/domain"

// RefreshMsg signals that the store or a streaming shadow changed and the
// transcript must be re-read.
type RefreshMsg struct{}

// StreamFailedMsg reports a push channel that ended with a transport error.
type StreamFailedMsg struct {
	MessageID string
	Reason    string
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}

// sendDoneMsg carries the outcome of a send started from the composer.
type sendDoneMsg struct {
	text string
	msg  *domain.Message
	err  error
}

// revalidatedMsg carries the outcome of a manual or initial refetch.
type revalidatedMsg struct {
	err error
}

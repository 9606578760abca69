package domain

import "time"

// AuthorType identifies who produced a message.
type AuthorType string

// Author types.
const (
	AuthorUser      AuthorType = "user"
	AuthorAssistant AuthorType = "assistant"
)

// Author describes the producer of a message.
type Author struct {
	Type AuthorType `json:"type"`
}

// GenerationStatus tracks whether an assistant reply is still being produced.
type GenerationStatus string

// Generation statuses.
const (
	GenerationIdle       GenerationStatus = "idle"
	GenerationGenerating GenerationStatus = "generating"
)

// Generation carries the live-stream handle of a message that is generating.
type Generation struct {
	Status    GenerationStatus `json:"status"`
	StreamURL string           `json:"streamUrl,omitempty"`
}

// Message is a single entry in a conversation.
// ID is immutable; the streaming layer never edits a persisted Message.
type Message struct {
	ID         string      `json:"id"`
	Author     Author      `json:"author"`
	Parts      []Part      `json:"parts"`
	Generation *Generation `json:"generation,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// IsGenerating reports whether the message is still being produced.
func (m Message) IsGenerating() bool {
	return m.Generation != nil && m.Generation.Status == GenerationGenerating
}

// StreamURL returns the push-channel URL, or "" when none is attached.
func (m Message) StreamURL() string {
	if m.Generation == nil {
		return ""
	}
	return m.Generation.StreamURL
}

// Streamable reports whether a stream subscription may be attached:
// the message is generating and carries a non-empty stream URL.
func (m Message) Streamable() bool {
	return m.IsGenerating() && m.StreamURL() != ""
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	m.Parts = CloneParts(m.Parts)
	if m.Generation != nil {
		g := *m.Generation
		m.Generation = &g
	}
	return m
}

// CloneMessages deep-copies a message slice.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// LastAssistantID returns the id of the most recent assistant-authored message
// in canonical order. ok is false when the list has no assistant messages.
func LastAssistantID(msgs []Message) (id string, ok bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Author.Type == AuthorAssistant {
			return msgs[i].ID, true
		}
	}
	return "", false
}

package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventStreamAttached EventType = "stream.attached"
	EventStreamUpdated  EventType = "stream.updated"
	EventStreamComplete EventType = "stream.completed"
	EventStreamFailed   EventType = "stream.failed"
	EventStreamDetached EventType = "stream.detached"

	EventMessageSent       EventType = "message.sent"
	EventMessageSendFailed EventType = "message.send_failed"
	EventMessagesRefreshed EventType = "messages.revalidated"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	ChatID    string          `json:"chat_id,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// StreamFailedPayload is the payload of EventStreamFailed.
type StreamFailedPayload struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// SendFailedPayload is the payload of EventMessageSendFailed.
type SendFailedPayload struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for chat lifecycle events.
type EventBus interface {
	// Publish delivers an event to all matching subscribers, in subscription order.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close prevents new publishes.
	Close()
}

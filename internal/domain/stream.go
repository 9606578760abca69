package domain

import (
	"encoding/json"
	"fmt"
)

// StreamEventType is the discriminator of a push-channel event.
type StreamEventType string

// Push-channel event types.
const (
	StreamEventStart  StreamEventType = "start"
	StreamEventChunk  StreamEventType = "chunk"
	StreamEventReplay StreamEventType = "replay"
	StreamEventTool   StreamEventType = "tool"
	StreamEventDone   StreamEventType = "done"
	StreamEventPing   StreamEventType = "ping"
)

// StreamEvent is one decoded push-channel event.
//
// Chunk is set for chunk events (a delta); Content for replay events (the
// cumulative text); ToolResult for tool events.
type StreamEvent struct {
	Type       StreamEventType
	Chunk      string
	Content    string
	ToolResult *Part
}

type wireStreamEvent struct {
	Type       StreamEventType `json:"type"`
	Chunk      *string         `json:"chunk"`
	Content    *string         `json:"content"`
	ToolResult json.RawMessage `json:"toolResult"`
}

// DecodeStreamEvent parses one JSON event. It returns an error wrapping
// ErrMalformedEvent when the payload is not a recognised event shape.
func DecodeStreamEvent(data []byte) (StreamEvent, error) {
	var w wireStreamEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return StreamEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := StreamEvent{Type: w.Type}
	switch w.Type {
	case StreamEventStart, StreamEventDone, StreamEventPing:
	case StreamEventChunk:
		if w.Chunk == nil {
			return StreamEvent{}, fmt.Errorf("%w: chunk event without chunk", ErrMalformedEvent)
		}
		ev.Chunk = *w.Chunk
	case StreamEventReplay:
		if w.Content == nil {
			return StreamEvent{}, fmt.Errorf("%w: replay event without content", ErrMalformedEvent)
		}
		ev.Content = *w.Content
	case StreamEventTool:
		if len(nullToNil(w.ToolResult)) == 0 {
			return StreamEvent{}, fmt.Errorf("%w: tool event without toolResult", ErrMalformedEvent)
		}
		var tr toolWire
		if err := json.Unmarshal(w.ToolResult, &tr); err != nil {
			return StreamEvent{}, fmt.Errorf("%w: toolResult: %v", ErrMalformedEvent, err)
		}
		if (tr.Type != "" && tr.Type != PartTool) || tr.Name == "" {
			return StreamEvent{}, fmt.Errorf("%w: toolResult is not a named tool part", ErrMalformedEvent)
		}
		part := ToolPart(tr.Name, nullToNil(tr.Params), nullToNil(tr.Result))
		ev.ToolResult = &part
	case "":
		return StreamEvent{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return StreamEvent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, w.Type)
	}
	return ev, nil
}

// StreamState is the lifecycle state of a stream controller.
type StreamState int

// Stream controller states. Done, Error and Detached are terminal.
const (
	StreamIdle StreamState = iota
	StreamConnecting
	StreamStreaming
	StreamDone
	StreamError
	StreamDetached
)

// String returns a lowercase label used in logs and events.
func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamConnecting:
		return "connecting"
	case StreamStreaming:
		return "streaming"
	case StreamDone:
		return "done"
	case StreamError:
		return "error"
	case StreamDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Active reports whether the state holds an open (or opening) subscription.
func (s StreamState) Active() bool {
	return s == StreamConnecting || s == StreamStreaming
}

// Terminal reports whether no further events will be applied.
func (s StreamState) Terminal() bool {
	return s == StreamDone || s == StreamError || s == StreamDetached
}

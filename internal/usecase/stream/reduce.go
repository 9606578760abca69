// Package stream turns push-channel events into shadow-part mutations for
// messages that are still generating.
package stream

import "creator-chat/internal/domain"

// apply folds one content event into parts and reports whether parts changed.
//
// chunk is additive and replay is substitutive: a chunk appends to the trailing
// text part, a replay overwrites it. Both start a new text part when the
// trailing part is not text. Tool results always append a new part.
func apply(parts []domain.Part, ev domain.StreamEvent) ([]domain.Part, bool) {
	switch ev.Type {
	case domain.StreamEventChunk:
		if last := lastText(parts); last != nil {
			last.Value += ev.Chunk
			return parts, true
		}
		return append(parts, domain.TextPart(ev.Chunk)), true

	case domain.StreamEventReplay:
		if last := lastText(parts); last != nil {
			last.Value = ev.Content
			return parts, true
		}
		return append(parts, domain.TextPart(ev.Content)), true

	case domain.StreamEventTool:
		if ev.ToolResult == nil {
			return parts, false
		}
		return append(parts, domain.ClonePart(*ev.ToolResult)), true
	}
	return parts, false
}

// lastText returns a pointer to the trailing part when it is a text part.
func lastText(parts []domain.Part) *domain.Part {
	if len(parts) == 0 {
		return nil
	}
	if last := &parts[len(parts)-1]; last.IsText() {
		return last
	}
	return nil
}

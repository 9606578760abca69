package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PartType discriminates the content held by a Part.
type PartType string

// Known part discriminants. Any other value is preserved verbatim in Part.Raw.
const (
	PartText PartType = "text"
	PartTool PartType = "tool"
)

// Part is one unit of message content: rendered text or a tool-call result.
//
// Text parts use Value. Tool parts use Name, Params and Result, the latter two
// kept as raw JSON because their shape is owned by the tool. A part whose
// Type is neither text nor tool keeps its original payload in Raw so it can be
// shown by a diagnostic renderer and re-encoded without loss.
type Part struct {
	Type   PartType
	Value  string
	Name   string
	Params json.RawMessage
	Result json.RawMessage
	Raw    json.RawMessage
}

// TextPart returns a text part holding value.
func TextPart(value string) Part {
	return Part{Type: PartText, Value: value}
}

// ToolPart returns a tool part. params and result may be nil.
func ToolPart(name string, params, result json.RawMessage) Part {
	return Part{Type: PartTool, Name: name, Params: params, Result: result}
}

// IsText reports whether p is a text part.
func (p Part) IsText() bool { return p.Type == PartText }

// IsTool reports whether p is a tool part.
func (p Part) IsTool() bool { return p.Type == PartTool }

// Known reports whether p has a discriminant this package understands.
func (p Part) Known() bool { return p.IsText() || p.IsTool() }

type textWire struct {
	Type  PartType `json:"type"`
	Value string   `json:"value"`
}

type toolWire struct {
	Type   PartType        `json:"type"`
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// MarshalJSON encodes p in its wire shape. Unknown parts re-emit Raw.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PartText:
		return json.Marshal(textWire{Type: p.Type, Value: p.Value})
	case PartTool:
		return json.Marshal(toolWire{Type: p.Type, Name: p.Name, Params: p.Params, Result: p.Result})
	default:
		if len(p.Raw) > 0 {
			return p.Raw, nil
		}
		return json.Marshal(struct {
			Type PartType `json:"type"`
		}{Type: p.Type})
	}
}

// UnmarshalJSON decodes a wire part. Only the type is read up front; the
// other fields are interpreted for text and tool parts alone. Objects with an
// unrecognised type are accepted and kept in Raw whatever their other fields
// hold. Only non-object input is rejected.
func (p *Part) UnmarshalJSON(data []byte) error {
	var head struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode part: %w", err)
	}
	var typ PartType
	if len(head.Type) > 0 {
		// A non-string discriminant is just another unknown type.
		_ = json.Unmarshal(head.Type, &typ)
	}

	switch typ {
	case PartText:
		var w textWire
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("decode text part: %w", err)
		}
		*p = Part{Type: PartText, Value: w.Value}
	case PartTool:
		var w toolWire
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("decode tool part: %w", err)
		}
		*p = Part{
			Type:   PartTool,
			Name:   w.Name,
			Params: nullToNil(w.Params),
			Result: nullToNil(w.Result),
		}
	default:
		*p = Part{Type: typ, Raw: cloneRaw(data)}
	}
	return nil
}

// ClonePart returns a deep copy of p; raw JSON buffers are not shared.
func ClonePart(p Part) Part {
	p.Params = cloneRaw(p.Params)
	p.Result = cloneRaw(p.Result)
	p.Raw = cloneRaw(p.Raw)
	return p
}

// CloneParts deep-copies a part slice. A nil slice clones to an empty one so
// shadows always have somewhere to append.
func CloneParts(parts []Part) []Part {
	out := make([]Part, len(parts))
	for i, p := range parts {
		out[i] = ClonePart(p)
	}
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return cp
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return cloneRaw(raw)
}

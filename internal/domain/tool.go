package domain

import "encoding/json"

// ToolWebSearch is the tool enabled by the web-search capability toggle.
const ToolWebSearch = "web_search"

// ToolView is what a tool renderer receives for one tool part.
type ToolView struct {
	ToolName string
	Params   json.RawMessage
	Result   json.RawMessage
}

// RendererFn renders one tool part. Renderers are looked up by tool name in a
// flat registry supplied by the caller.
type RendererFn func(view ToolView) string

// Capabilities are the per-send feature toggles chosen in the composer.
type Capabilities struct {
	WebSearch bool
}

// EnabledTools maps toggles to tool names. The result is never nil so the
// wire field is always an array.
func (c Capabilities) EnabledTools() []string {
	tools := []string{}
	if c.WebSearch {
		tools = append(tools, ToolWebSearch)
	}
	return tools
}

package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"creator-chat/internal/domain"
)

// DefaultRegistry returns the renderers for built-in tools.
func DefaultRegistry() Registry {
	return Registry{
		domain.ToolWebSearch: WebSearch,
	}
}

type searchHit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WebSearch lists search hits. It accepts a bare array of {title, url} or an
// object with a "results" array; anything else is shown as JSON.
func WebSearch(v domain.ToolView) string {
	var hits []searchHit
	if err := json.Unmarshal(v.Result, &hits); err != nil {
		var wrapped struct {
			Results []searchHit `json:"results"`
		}
		if err := json.Unmarshal(v.Result, &wrapped); err != nil || wrapped.Results == nil {
			return JSON(v)
		}
		hits = wrapped.Results
	}
	if len(hits) == 0 {
		return "no results"
	}

	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := h.Title
		if title == "" {
			title = h.URL
		}
		fmt.Fprintf(&b, "%d. %s", i+1, title)
		if h.URL != "" && h.URL != title {
			fmt.Fprintf(&b, " <%s>", h.URL)
		}
	}
	return b.String()
}

// JSON shows the result indented, or "(no result)" when absent.
func JSON(v domain.ToolView) string {
	if len(v.Result) == 0 {
		return "(no result)"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, v.Result, "", "  "); err != nil {
		return string(v.Result)
	}
	return buf.String()
}

package render

import (
	"strings"

	"creator-chat/internal/domain"
)

// Message renders msg with an author label. live marks a message whose parts
// are a streaming shadow.
func (r *Renderer) Message(msg domain.Message, live bool) string {
	var b strings.Builder
	if msg.Author.Type == domain.AuthorUser {
		b.WriteString(userLabel.Render("You"))
	} else {
		b.WriteString(assistantLabel.Render("Assistant"))
	}
	b.WriteByte('\n')

	for i, v := range r.Parts(msg.Parts) {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Style(v, msg.Parts[i]))
	}
	if live {
		if len(msg.Parts) > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(streaming.Render("generating…"))
	}
	return b.String()
}

// Style applies terminal styling to a view of part p.
func Style(v View, p domain.Part) string {
	switch v.Kind {
	case KindTool:
		return toolBlock.Render(toolName.Render(symbolTool+" "+p.Name) + "\n" + v.Text)
	case KindFallback:
		return toolName.Render(symbolTool+" "+p.Name) + " " + toolDone.Render(symbolDone+" executed")
	case KindDiagnostic:
		return diagnostic.Render(symbolWarning + " " + v.Text)
	default:
		return v.Text
	}
}

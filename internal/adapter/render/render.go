// Package render turns message parts into terminal views. Tool parts are
// dispatched through a flat name-to-renderer registry.
package render

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/kaptinlin/jsonschema"

	"creator-chat/internal/domain"
)

// Kind classifies a rendered view.
type Kind int

// View kinds.
const (
	KindText       Kind = iota // text part
	KindTool                   // tool part rendered by its registered renderer
	KindFallback               // tool part with no renderer
	KindDiagnostic             // part that could not be rendered
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTool:
		return "tool"
	case KindFallback:
		return "fallback"
	case KindDiagnostic:
		return "diagnostic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// View is the unstyled rendering of one part.
type View struct {
	Kind Kind
	Text string
}

// Registry maps a tool name to its renderer.
type Registry map[string]domain.RendererFn

// Options configure text rendering.
type Options struct {
	// Markdown renders text parts through glamour. It needs Width > 0.
	Markdown bool
	Width    int
}

// Renderer renders parts. It never panics on unexpected input.
type Renderer struct {
	registry Registry
	logger   *slog.Logger

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
	md      *glamour.TermRenderer
}

// NewRenderer creates a renderer. The registry is copied.
func NewRenderer(registry Registry, opts Options, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := make(Registry, len(registry))
	for name, fn := range registry {
		reg[name] = fn
	}
	r := &Renderer{
		registry: reg,
		logger:   logger,
		schemas:  make(map[string]*jsonschema.Schema),
	}
	if opts.Markdown && opts.Width > 0 {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(opts.Width),
		)
		if err != nil {
			return nil, fmt.Errorf("create markdown renderer: %w", err)
		}
		r.md = md
	}
	return r, nil
}

// SetResultSchema requires results of tool to satisfy the JSON Schema in
// schema. Results that fail are shown as a diagnostic instead of being passed
// to the tool's renderer.
func (r *Renderer) SetResultSchema(tool string, schema []byte) error {
	compiled, err := jsonschema.NewCompiler().Compile(schema)
	if err != nil {
		return fmt.Errorf("compile %s result schema: %w", tool, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[tool] = compiled
	return nil
}

// Parts renders every part in order.
func (r *Renderer) Parts(parts []domain.Part) []View {
	views := make([]View, len(parts))
	for i, p := range parts {
		views[i] = r.Part(p)
	}
	return views
}

// Part renders a single part.
func (r *Renderer) Part(p domain.Part) View {
	switch p.Type {
	case domain.PartText:
		return View{Kind: KindText, Text: r.text(p.Value)}
	case domain.PartTool:
		return r.tool(p)
	default:
		err := domain.NewDomainError("Renderer.Part", domain.ErrUnknownPartType, string(p.Type))
		r.logger.Debug("rendering diagnostic for part",
			"type", string(p.Type),
			"code", string(domain.ErrorCodeOf(err)),
			"error", err,
		)
		return diagnosticView(fmt.Sprintf("unsupported part type %q", p.Type), p)
	}
}

func (r *Renderer) text(value string) string {
	r.mu.RLock()
	md := r.md
	r.mu.RUnlock()
	if md == nil {
		return value
	}
	out, err := md.Render(value)
	if err != nil {
		r.logger.Debug("markdown render failed", "error", err)
		return value
	}
	return strings.TrimRight(out, "\n")
}

func (r *Renderer) tool(p domain.Part) (view View) {
	fn, ok := r.registry[p.Name]
	if !ok {
		return View{Kind: KindFallback, Text: p.Name + " executed"}
	}

	if err := r.validateResult(p); err != nil {
		return diagnosticView(fmt.Sprintf("tool %q returned an invalid result: %v", p.Name, err), p)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("tool renderer panicked", "tool", p.Name, "panic", rec)
			view = diagnosticView(fmt.Sprintf("renderer for %q failed: %v", p.Name, rec), p)
		}
	}()
	return View{Kind: KindTool, Text: fn(domain.ToolView{
		ToolName: p.Name,
		Params:   p.Params,
		Result:   p.Result,
	})}
}

func (r *Renderer) validateResult(p domain.Part) error {
	r.mu.RLock()
	schema, ok := r.schemas[p.Name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	var data any
	if len(p.Result) > 0 {
		if err := json.Unmarshal(p.Result, &data); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%s", result.Error())
	}
	return nil
}

// diagnosticView shows reason followed by the part's raw JSON payload.
func diagnosticView(reason string, p domain.Part) View {
	raw, err := json.Marshal(p)
	if err != nil {
		raw = []byte(fmt.Sprintf("%+v", p))
	}
	return View{Kind: KindDiagnostic, Text: reason + ": " + string(raw)}
}

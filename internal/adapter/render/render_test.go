package render

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creator-chat/internal/domain"
)

func newTestRenderer(t *testing.T, reg Registry) *Renderer {
	t.Helper()
	r, err := NewRenderer(reg, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return r
}

func unknownPart(t *testing.T, raw string) domain.Part {
	t.Helper()
	var p domain.Part
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestRegisteredRendererReceivesToolView(t *testing.T) {
	var got domain.ToolView
	r := newTestRenderer(t, Registry{
		"lookup": func(v domain.ToolView) string {
			got = v
			return "found x=1"
		},
	})

	v := r.Part(domain.ToolPart("lookup", json.RawMessage(`{"q":"x"}`), json.RawMessage(`{"x":1}`)))

	assert.Equal(t, KindTool, v.Kind)
	assert.Equal(t, "found x=1", v.Text)
	assert.Equal(t, "lookup", got.ToolName)
	assert.JSONEq(t, `{"q":"x"}`, string(got.Params))
	assert.JSONEq(t, `{"x":1}`, string(got.Result))
}

func TestMissingRendererFallsBack(t *testing.T) {
	r := newTestRenderer(t, nil)

	v := r.Part(domain.ToolPart("image_gen", nil, nil))

	assert.Equal(t, KindFallback, v.Kind)
	assert.Contains(t, v.Text, "image_gen")
	assert.Contains(t, v.Text, "executed")
	assert.Contains(t, Style(v, domain.ToolPart("image_gen", nil, nil)), "executed")
}

func TestUnknownPartTypeShowsRawPayload(t *testing.T) {
	r := newTestRenderer(t, DefaultRegistry())
	p := unknownPart(t, `{"type":"video","url":"https://cdn/x.mp4"}`)

	var v View
	require.NotPanics(t, func() { v = r.Part(p) })
	assert.Equal(t, KindDiagnostic, v.Kind)
	assert.Contains(t, v.Text, `"video"`)
	assert.Contains(t, v.Text, `https://cdn/x.mp4`)
}

func TestUnknownPartTypeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r, err := NewRenderer(nil, Options{}, logger)
	require.NoError(t, err)

	v := r.Part(unknownPart(t, `{"type":"image","value":{"url":"x"}}`))

	assert.Equal(t, KindDiagnostic, v.Kind)
	assert.Contains(t, buf.String(), "code=UNKNOWN_PART_TYPE")
	assert.Contains(t, buf.String(), domain.ErrUnknownPartType.Error())
}

func TestPanickingRendererIsContained(t *testing.T) {
	r := newTestRenderer(t, Registry{
		"flaky": func(domain.ToolView) string { panic("nil map") },
	})

	var v View
	require.NotPanics(t, func() { v = r.Part(domain.ToolPart("flaky", nil, json.RawMessage(`{"a":1}`))) })
	assert.Equal(t, KindDiagnostic, v.Kind)
	assert.Contains(t, v.Text, "nil map")
	assert.Contains(t, v.Text, `"a":1`)
}

func TestResultSchemaValidation(t *testing.T) {
	calls := 0
	r := newTestRenderer(t, Registry{
		"lookup": func(domain.ToolView) string { calls++; return "ok" },
	})
	require.NoError(t, r.SetResultSchema("lookup", []byte(`{
		"type": "object",
		"properties": {"x": {"type": "integer"}},
		"required": ["x"]
	}`)))

	ok := r.Part(domain.ToolPart("lookup", nil, json.RawMessage(`{"x":1}`)))
	assert.Equal(t, KindTool, ok.Kind)

	bad := r.Part(domain.ToolPart("lookup", nil, json.RawMessage(`{"y":"nope"}`)))
	assert.Equal(t, KindDiagnostic, bad.Kind)
	assert.Contains(t, bad.Text, "invalid result")
	assert.Equal(t, 1, calls, "renderer is not invoked for invalid results")
}

func TestSetResultSchemaRejectsBadSchema(t *testing.T) {
	r := newTestRenderer(t, nil)
	assert.Error(t, r.SetResultSchema("lookup", []byte(`{not json`)))
}

func TestRegistryIsCopied(t *testing.T) {
	reg := Registry{"lookup": func(domain.ToolView) string { return "v1" }}
	r := newTestRenderer(t, reg)
	reg["lookup"] = func(domain.ToolView) string { return "v2" }

	assert.Equal(t, "v1", r.Part(domain.ToolPart("lookup", nil, nil)).Text)
}

func TestTextPlainWithoutMarkdown(t *testing.T) {
	r := newTestRenderer(t, nil)
	v := r.Part(domain.TextPart("**bold** text"))
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "**bold** text", v.Text)
}

func TestTextMarkdown(t *testing.T) {
	r, err := NewRenderer(nil, Options{Markdown: true, Width: 60}, nil)
	require.NoError(t, err)

	v := r.Part(domain.TextPart("# Title\n\nsome **bold** words"))
	assert.Equal(t, KindText, v.Kind)
	assert.Contains(t, v.Text, "Title")
	assert.Contains(t, v.Text, "bold")
	assert.NotContains(t, v.Text, "**")
}

func TestMessageRendering(t *testing.T) {
	r := newTestRenderer(t, DefaultRegistry())
	msg := domain.Message{
		ID:     "a1",
		Author: domain.Author{Type: domain.AuthorAssistant},
		Parts: []domain.Part{
			domain.TextPart("Here is what I found"),
			domain.ToolPart(domain.ToolWebSearch, nil, json.RawMessage(`[{"title":"Go 1.26","url":"https://go.dev"}]`)),
			domain.ToolPart("unknown_tool", nil, nil),
			unknownPart(t, `{"type":"poll"}`),
		},
	}

	out := r.Message(msg, true)
	for _, want := range []string{
		"Assistant", "Here is what I found", "1. Go 1.26 <https://go.dev>",
		"unknown_tool", "executed", `"poll"`, "generating",
	} {
		assert.Contains(t, out, want)
	}

	user := r.Message(domain.Message{Author: domain.Author{Type: domain.AuthorUser}, Parts: []domain.Part{domain.TextPart("hi")}}, false)
	assert.True(t, strings.HasPrefix(user, "You"), user)
	assert.NotContains(t, user, "generating")
}

func TestWebSearchRenderer(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{"array", `[{"title":"A","url":"https://a"},{"url":"https://b"}]`, "1. A <https://a>\n2. https://b"},
		{"wrapped", `{"results":[{"title":"A","url":"https://a"}]}`, "1. A <https://a>"},
		{"empty", `[]`, "no results"},
		{"other", `{"answer":42}`, "{\n  \"answer\": 42\n}"},
		{"none", ``, "(no result)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WebSearch(domain.ToolView{ToolName: domain.ToolWebSearch, Result: json.RawMessage(tt.result)})
			assert.Equal(t, tt.want, got)
		})
	}
}

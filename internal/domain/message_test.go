package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestMessageStreamable(t *testing.T) {
	tests := []struct {
		name string
		gen  *Generation
		want bool
	}{
		{"no generation", nil, false},
		{"idle", &Generation{Status: GenerationIdle, StreamURL: "https://x/s"}, false},
		{"generating without url", &Generation{Status: GenerationGenerating}, false},
		{"generating with url", &Generation{Status: GenerationGenerating, StreamURL: "https://x/s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{ID: "m1", Generation: tt.gen}
			if got := m.Streamable(); got != tt.want {
				t.Errorf("Streamable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageCloneIsDeep(t *testing.T) {
	m := Message{
		ID:         "m1",
		Author:     Author{Type: AuthorAssistant},
		Parts:      []Part{TextPart("a")},
		Generation: &Generation{Status: GenerationGenerating, StreamURL: "u"},
	}
	cp := m.Clone()
	cp.Parts[0].Value = "b"
	cp.Generation.Status = GenerationIdle

	if m.Parts[0].Value != "a" {
		t.Errorf("parts aliased: %q", m.Parts[0].Value)
	}
	if m.Generation.Status != GenerationGenerating {
		t.Errorf("generation aliased: %q", m.Generation.Status)
	}
}

func TestLastAssistantID(t *testing.T) {
	msgs := []Message{
		{ID: "u1", Author: Author{Type: AuthorUser}},
		{ID: "a1", Author: Author{Type: AuthorAssistant}},
		{ID: "u2", Author: Author{Type: AuthorUser}},
		{ID: "a2", Author: Author{Type: AuthorAssistant}},
		{ID: "u3", Author: Author{Type: AuthorUser}},
	}
	id, ok := LastAssistantID(msgs)
	if !ok || id != "a2" {
		t.Errorf("LastAssistantID = %q, %v; want a2, true", id, ok)
	}

	if _, ok := LastAssistantID(msgs[:1]); ok {
		t.Error("expected no assistant in user-only list")
	}
	if _, ok := LastAssistantID(nil); ok {
		t.Error("expected no assistant in empty list")
	}
}

func TestMessageJSON(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := Message{
		ID:         "a1",
		Author:     Author{Type: AuthorAssistant},
		Parts:      []Part{TextPart("hi")},
		Generation: &Generation{Status: GenerationGenerating, StreamURL: "https://api/stream/a1"},
		CreatedAt:  created,
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != m.ID || got.StreamURL() != m.StreamURL() || !got.CreatedAt.Equal(created) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Parts, []Part{TextPart("hi")}) {
		t.Errorf("parts = %+v", got.Parts)
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"creator-chat/internal/adapter/store"
	"creator-chat/internal/domain"
	"creator-chat/internal/usecase/eventbus"
)

type sendFixture struct {
	backend     *chatBackend
	store       *store.Memory
	revalidated int
	sender      *Sender
}

func newSendFixture(t *testing.T) *sendFixture {
	t.Helper()
	f := &sendFixture{
		backend: &chatBackend{reply: &domain.Message{ID: "u-new", Author: domain.Author{Type: domain.AuthorUser}}},
		store:   store.NewMemory(),
	}
	f.sender = NewSender(SenderDeps{
		Backend:    f.backend,
		Store:      f.store,
		Revalidate: func() { f.revalidated++ },
		ChatID:     func() string { return "chat-1" },
		Logger:     quietLogger(),
	})
	return f
}

func TestSend_EnabledToolsFollowToggle(t *testing.T) {
	tests := []struct {
		name string
		caps domain.Capabilities
		text string
		want []string
	}{
		{"search on", domain.Capabilities{WebSearch: true}, "what's new in Go?", []string{"web_search"}},
		{"search off", domain.Capabilities{}, "what's new in Go?", []string{}},
		{"search on other text", domain.Capabilities{WebSearch: true}, "hi", []string{"web_search"}},
		{"search off other text", domain.Capabilities{}, "hi", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSendFixture(t)
			if _, err := f.sender.Send(context.Background(), "", tt.text, tt.caps); err != nil {
				t.Fatalf("Send: %v", err)
			}
			req := f.backend.lastRequest()
			if len(req.EnabledTools) != len(tt.want) {
				t.Fatalf("EnabledTools = %v, want %v", req.EnabledTools, tt.want)
			}
			for i := range tt.want {
				if req.EnabledTools[i] != tt.want[i] {
					t.Errorf("EnabledTools[%d] = %q, want %q", i, req.EnabledTools[i], tt.want[i])
				}
			}

			data, err := json.Marshal(req)
			if err != nil {
				t.Fatalf("marshal request: %v", err)
			}
			if strings.Contains(string(data), `"enabledTools":null`) {
				t.Errorf("enabledTools must never encode as null: %s", data)
			}
		})
	}
}

func TestSend_PreviousResponseID(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(id string, a domain.AuthorType, n int) domain.Message {
		return domain.Message{ID: id, Author: domain.Author{Type: a}, CreatedAt: now.Add(time.Duration(n) * time.Second)}
	}

	t.Run("latest assistant message", func(t *testing.T) {
		f := newSendFixture(t)
		_ = f.store.ReplaceAll(context.Background(), "chat-1", []domain.Message{
			at("u1", domain.AuthorUser, 0),
			at("a1", domain.AuthorAssistant, 1),
			at("u2", domain.AuthorUser, 2),
			at("a2", domain.AuthorAssistant, 3),
			at("u3", domain.AuthorUser, 4),
		})

		if _, err := f.sender.Send(context.Background(), "chat-1", "next", domain.Capabilities{}); err != nil {
			t.Fatalf("Send: %v", err)
		}
		req := f.backend.lastRequest()
		if req.PreviousResponseID == nil || *req.PreviousResponseID != "a2" {
			t.Errorf("PreviousResponseID = %v, want a2", req.PreviousResponseID)
		}
	})

	t.Run("no assistant yet", func(t *testing.T) {
		f := newSendFixture(t)
		_ = f.store.ReplaceAll(context.Background(), "chat-1", []domain.Message{at("u1", domain.AuthorUser, 0)})

		if _, err := f.sender.Send(context.Background(), "chat-1", "first", domain.Capabilities{}); err != nil {
			t.Fatalf("Send: %v", err)
		}
		req := f.backend.lastRequest()
		if req.PreviousResponseID != nil {
			t.Errorf("PreviousResponseID = %q, want nil", *req.PreviousResponseID)
		}
		data, _ := json.Marshal(req)
		if !strings.Contains(string(data), `"previousResponseId":null`) {
			t.Errorf("wire request = %s, want previousResponseId null", data)
		}
	})
}

func TestSend_BuildsSingleTextPart(t *testing.T) {
	f := newSendFixture(t)
	msg, err := f.sender.Send(context.Background(), "chat-1", "  hello  ", domain.Capabilities{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg == nil || msg.ID != "u-new" {
		t.Fatalf("Send returned %+v", msg)
	}

	req := f.backend.lastRequest()
	if req.ChatID != "chat-1" {
		t.Errorf("ChatID = %q", req.ChatID)
	}
	if len(req.Parts) != 1 || !req.Parts[0].IsText() || req.Parts[0].Value != "  hello  " {
		t.Errorf("Parts = %+v, want single text part", req.Parts)
	}
	if f.revalidated != 1 {
		t.Errorf("revalidated = %d, want 1", f.revalidated)
	}
}

func TestSend_EmptyInputIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		f := newSendFixture(t)
		msg, err := f.sender.Send(context.Background(), "chat-1", text, domain.Capabilities{WebSearch: true})
		if err != nil || msg != nil {
			t.Errorf("Send(%q) = %v, %v; want nil, nil", text, msg, err)
		}
		if len(f.backend.sent) != 0 {
			t.Errorf("Send(%q) called the backend", text)
		}
		if f.revalidated != 0 {
			t.Errorf("Send(%q) revalidated", text)
		}
	}
}

func TestSend_FailureIsSurfaced(t *testing.T) {
	f := newSendFixture(t)
	before := []domain.Message{{ID: "a1", Author: domain.Author{Type: domain.AuthorAssistant}}}
	_ = f.store.ReplaceAll(context.Background(), "chat-1", before)
	f.backend.sendErr = errors.New("quota exceeded")

	bus := eventbus.New(quietLogger())
	var failed []domain.Event
	bus.Subscribe(domain.EventMessageSendFailed, func(_ context.Context, e domain.Event) {
		failed = append(failed, e)
	})
	f.sender.deps.Bus = bus

	msg, err := f.sender.Send(context.Background(), "chat-1", "hello", domain.Capabilities{})
	if msg != nil {
		t.Errorf("msg = %+v, want nil", msg)
	}
	if !errors.Is(err, domain.ErrSendFailure) {
		t.Fatalf("err = %v, want ErrSendFailure", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %q, want backend cause", err)
	}
	if f.revalidated != 0 {
		t.Errorf("revalidated = %d, want 0", f.revalidated)
	}

	after, _ := f.store.List(context.Background(), "chat-1")
	if len(after) != 1 || after[0].ID != "a1" {
		t.Errorf("store changed after failed send: %+v", after)
	}
	if len(failed) != 1 || failed[0].ChatID != "chat-1" {
		t.Errorf("send_failed events = %+v", failed)
	}
}

func TestSend_RequiresChatID(t *testing.T) {
	s := NewSender(SenderDeps{Backend: &chatBackend{}, Logger: quietLogger()})
	_, err := s.Send(context.Background(), "", "hello", domain.Capabilities{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

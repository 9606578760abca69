package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"creator-chat/internal/domain"
)

type fakeSub struct {
	url    string
	frames chan domain.Frame
	closes atomic.Int32
}

func (s *fakeSub) Frames() <-chan domain.Frame { return s.frames }

func (s *fakeSub) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *fakeSub) send(t *testing.T, raw string) {
	t.Helper()
	s.frames <- domain.Frame{Data: []byte(raw)}
}

func (s *fakeSub) sendEvent(t *testing.T, ev any) {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	s.frames <- domain.Frame{Data: data}
}

// fakeSource hands out fakeSubs and tracks how many are open at once.
type fakeSource struct {
	mu      sync.Mutex
	subs    []*fakeSub
	openErr error
}

func (s *fakeSource) Open(_ context.Context, url string) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	sub := &fakeSub{url: url, frames: make(chan domain.Frame, 64)}
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *fakeSource) opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *fakeSource) sub(i int) *fakeSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[i]
}

// openCount returns subscriptions opened but not yet closed.
func (s *fakeSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if sub.closes.Load() == 0 {
			n++
		}
	}
	return n
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) record(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

// lastStreamingParts returns the parts of the latest streaming update.
func (r *recorder) lastStreamingParts() []domain.Part {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].State == domain.StreamStreaming && r.updates[i].Parts != nil {
			return r.updates[i].Parts
		}
	}
	return nil
}

func (r *recorder) states() []domain.StreamState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.StreamState, 0, len(r.updates))
	for _, u := range r.updates {
		if len(out) == 0 || out[len(out)-1] != u.State {
			out = append(out, u.State)
		}
	}
	return out
}

func generating(id string, parts ...domain.Part) domain.Message {
	return domain.Message{
		ID:         id,
		Author:     domain.Author{Type: domain.AuthorAssistant},
		Parts:      parts,
		Generation: &domain.Generation{Status: domain.GenerationGenerating, StreamURL: "https://api.test/stream/" + id},
	}
}

func chunk(s string) domain.StreamEvent {
	return domain.StreamEvent{Type: domain.StreamEventChunk, Chunk: s}
}

func replay(s string) domain.StreamEvent {
	return domain.StreamEvent{Type: domain.StreamEventReplay, Content: s}
}

func tool(name string, result string) domain.StreamEvent {
	var raw json.RawMessage
	if result != "" {
		raw = json.RawMessage(result)
	}
	p := domain.ToolPart(name, nil, raw)
	return domain.StreamEvent{Type: domain.StreamEventTool, ToolResult: &p}
}

var done = domain.StreamEvent{Type: domain.StreamEventDone}

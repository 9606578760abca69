package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"creator-chat/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chatBackend is a scripted domain.ChatBackend.
type chatBackend struct {
	mu       sync.Mutex
	sent     []domain.SendRequest
	reply    *domain.Message
	sendErr  error
	listed   int
	messages []domain.Message
	listErr  error
}

func (b *chatBackend) SendMessage(_ context.Context, req domain.SendRequest) (*domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, req)
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	return b.reply, nil
}

func (b *chatBackend) ListMessages(_ context.Context, _ string) ([]domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listed++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return domain.CloneMessages(b.messages), nil
}

func (b *chatBackend) setMessages(msgs ...domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = msgs
}

func (b *chatBackend) lastRequest() domain.SendRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[len(b.sent)-1]
}

// pushSource hands out subscriptions that tests feed by hand.
type pushSource struct {
	mu   sync.Mutex
	subs map[string]*pushSub
}

type pushSub struct {
	frames chan domain.Frame
	once   sync.Once
	closed chan struct{}
}

func (s *pushSub) Frames() <-chan domain.Frame { return s.frames }

func (s *pushSub) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *pushSource) Open(_ context.Context, url string) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[string]*pushSub)
	}
	sub := &pushSub{frames: make(chan domain.Frame, 16), closed: make(chan struct{})}
	s.subs[url] = sub
	return sub, nil
}

func (s *pushSource) sub(url string) *pushSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[url]
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"creator-chat/internal/domain"
	"creator-chat/internal/infra/tracer"
	"creator-chat/internal/usecase/stream"
)

// ConversationDeps are the collaborators of a Conversation.
type ConversationDeps struct {
	ChatID  string
	Backend domain.ChatBackend
	Store   domain.MessageStore
	Bus     domain.EventBus // optional
	Logger  *slog.Logger
}

// Conversation is the query layer of one chat. It owns revalidation and the
// rendered view that overlays live shadow parts on the canonical store.
type Conversation struct {
	deps ConversationDeps

	mu      sync.RWMutex
	streams *stream.Manager
}

// NewConversation creates a conversation query layer.
func NewConversation(deps ConversationDeps) *Conversation {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Conversation{deps: deps}
}

// SetStreams wires the stream manager reconciled after every revalidation.
// The manager itself needs Revalidator, hence the setter.
func (c *Conversation) SetStreams(m *stream.Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams = m
}

// ChatID returns the id of the conversation.
func (c *Conversation) ChatID() string { return c.deps.ChatID }

// Revalidate refetches the canonical messages, replaces the store contents
// and reconciles stream subscriptions with the new list. When the backend is
// unreachable the previous snapshot is kept.
func (c *Conversation) Revalidate(ctx context.Context) error {
	ctx, span := tracer.StartSpan(ctx, "conversation.revalidate",
		trace.WithAttributes(tracer.StringAttr("chat.id", c.deps.ChatID)),
	)
	defer span.End()

	msgs, err := c.deps.Backend.ListMessages(ctx, c.deps.ChatID)
	if err != nil {
		err = domain.WrapOp("Conversation.Revalidate", err)
		tracer.RecordError(span, err)
		return err
	}
	if err := c.deps.Store.ReplaceAll(ctx, c.deps.ChatID, msgs); err != nil {
		err = domain.WrapOp("Conversation.Revalidate", fmt.Errorf("replace messages: %w", err))
		tracer.RecordError(span, err)
		return err
	}
	span.SetAttributes(tracer.IntAttr("messages", len(msgs)))

	if c.deps.Bus != nil {
		c.deps.Bus.Publish(ctx, domain.Event{
			Type:      domain.EventMessagesRefreshed,
			Timestamp: time.Now(),
			ChatID:    c.deps.ChatID,
		})
	}

	c.mu.RLock()
	streams := c.streams
	c.mu.RUnlock()
	if streams != nil {
		streams.Sync(ctx, msgs)
	}
	tracer.SetOK(span)
	return nil
}

// Revalidator adapts Revalidate to the no-argument callback used by stream
// controllers and the send pipeline. Failures are logged.
func (c *Conversation) Revalidator(ctx context.Context) domain.Revalidator {
	return func() {
		if err := c.Revalidate(ctx); err != nil {
			c.deps.Logger.Error("revalidate failed", "chat_id", c.deps.ChatID, "error", err)
		}
	}
}

// Messages returns the rendered view: canonical messages in store order,
// with the parts of every actively streaming message replaced by its shadow.
func (c *Conversation) Messages(ctx context.Context) ([]domain.Message, error) {
	msgs, err := c.deps.Store.List(ctx, c.deps.ChatID)
	if err != nil {
		return nil, domain.WrapOp("Conversation.Messages", err)
	}

	c.mu.RLock()
	streams := c.streams
	c.mu.RUnlock()
	if streams == nil {
		return msgs, nil
	}
	for i := range msgs {
		if parts, ok := streams.Shadow(msgs[i].ID); ok {
			msgs[i].Parts = parts
		}
	}
	return msgs, nil
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"creator-chat/internal/domain"
	"creator-chat/internal/infra/tracer"
)

// SenderDeps are the collaborators of the send pipeline.
type SenderDeps struct {
	Backend    domain.ChatBackend
	Store      domain.MessageStore
	Revalidate domain.Revalidator
	ChatID     domain.ChatIDFunc // used when Send is called with an empty chat id
	Bus        domain.EventBus   // optional
	Logger     *slog.Logger
}

// Sender turns composer input into backend send calls.
type Sender struct {
	deps SenderDeps
}

// NewSender creates a send pipeline.
func NewSender(deps SenderDeps) *Sender {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Revalidate == nil {
		deps.Revalidate = func() {}
	}
	return &Sender{deps: deps}
}

// Send submits text with the given capability toggles.
//
// Whitespace-only text is a no-op and returns (nil, nil). On success the
// conversation is revalidated before the new message is returned. On failure
// the returned error wraps domain.ErrSendFailure and nothing is revalidated.
func (s *Sender) Send(ctx context.Context, chatID, text string, caps domain.Capabilities) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if chatID == "" && s.deps.ChatID != nil {
		chatID = s.deps.ChatID()
	}
	if chatID == "" {
		return nil, domain.NewDomainError("Sender.Send", domain.ErrInvalidInput, "chat id is required")
	}

	ctx, span := tracer.StartSpan(ctx, "sender.send",
		trace.WithAttributes(tracer.StringAttr("chat.id", chatID)),
	)
	defer span.End()

	req, err := s.buildRequest(ctx, chatID, text, caps)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	msg, err := s.deps.Backend.SendMessage(ctx, req)
	if err != nil {
		err = domain.WrapOp("Sender.Send", fmt.Errorf("%w: %w", domain.ErrSendFailure, err))
		tracer.RecordError(span, err)
		s.deps.Logger.Warn("send failed", "chat_id", chatID, "code", domain.ErrorCodeOf(err), "error", err)
		payload, _ := json.Marshal(domain.SendFailedPayload{Error: err.Error(), Code: domain.ErrorCodeOf(err)})
		s.publish(ctx, domain.EventMessageSendFailed, chatID, "", payload)
		return nil, err
	}
	if msg == nil {
		err := domain.NewDomainError("Sender.Send", domain.ErrSendFailure, "empty response")
		tracer.RecordError(span, err)
		return nil, err
	}

	s.deps.Revalidate()
	s.publish(ctx, domain.EventMessageSent, chatID, msg.ID, nil)
	s.deps.Logger.Debug("message sent",
		"chat_id", chatID,
		"message_id", msg.ID,
		"tools", len(req.EnabledTools),
	)
	tracer.SetOK(span)
	return msg, nil
}

// buildRequest assembles the wire request, threading the id of the latest
// assistant message as previousResponseId.
func (s *Sender) buildRequest(ctx context.Context, chatID, text string, caps domain.Capabilities) (domain.SendRequest, error) {
	req := domain.SendRequest{
		ChatID:       chatID,
		Parts:        []domain.Part{domain.TextPart(text)},
		EnabledTools: caps.EnabledTools(),
	}
	if s.deps.Store == nil {
		return req, nil
	}
	msgs, err := s.deps.Store.List(ctx, chatID)
	if err != nil {
		return req, domain.WrapOp("Sender.Send", fmt.Errorf("list messages: %w", err))
	}
	if id, ok := domain.LastAssistantID(msgs); ok {
		req.PreviousResponseID = &id
	}
	return req, nil
}

func (s *Sender) publish(ctx context.Context, et domain.EventType, chatID, messageID string, payload json.RawMessage) {
	if s.deps.Bus == nil {
		return
	}
	s.deps.Bus.Publish(ctx, domain.Event{
		Type:      et,
		Timestamp: time.Now(),
		ChatID:    chatID,
		MessageID: messageID,
		Payload:   payload,
	})
}

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"creator-chat/internal/domain"
)

// errStreamClosed is reported when a subscription ends without a done event.
var errStreamClosed = errors.New("stream closed before done")

// Update is emitted after every state change or shadow mutation.
// Parts is the current shadow (nil once the shadow has been discarded).
type Update struct {
	MessageID string
	State     domain.StreamState
	Parts     []domain.Part
}

// ControllerDeps are dependencies injected into a Controller.
type ControllerDeps struct {
	Source     domain.StreamSource
	Revalidate domain.Revalidator
	Bus        domain.EventBus // optional
	Logger     *slog.Logger
	OnUpdate   func(Update) // optional; called without locks held
	ChatID     string       // optional; stamped on published events
}

// Controller is the stream state machine of one generating message.
//
// It seeds a shadow copy of the message's parts on attach and applies
// push-channel events to it. The persisted message is never touched: on done
// the shadow is discarded and revalidation is triggered exactly once; on a
// transport error the shadow is discarded and rendering reverts to the
// canonical parts.
type Controller struct {
	deps  ControllerDeps
	msg   domain.Message // canonical copy taken at construction
	subID string

	mu     sync.Mutex
	state  domain.StreamState
	shadow []domain.Part
	sub    domain.Subscription
	cancel context.CancelFunc
	pumped chan struct{} // closed when the pump goroutine exits; nil if never started

	closeOnce sync.Once
}

// NewController creates an idle controller for msg.
func NewController(msg domain.Message, deps ControllerDeps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Revalidate == nil {
		deps.Revalidate = func() {}
	}
	return &Controller{
		deps:  deps,
		msg:   msg.Clone(),
		subID: ulid.Make().String(),
		state: domain.StreamIdle,
	}
}

// MessageID returns the id of the controlled message.
func (c *Controller) MessageID() string { return c.msg.ID }

// StreamURL returns the push-channel URL the controller was created for.
func (c *Controller) StreamURL() string { return c.msg.StreamURL() }

// State returns the current state.
func (c *Controller) State() domain.StreamState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Shadow returns a copy of the shadow parts. ok is false when no shadow is
// live, i.e. before attach and after any terminal transition.
func (c *Controller) Shadow() (parts []domain.Part, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Active() {
		return nil, false
	}
	return domain.CloneParts(c.shadow), true
}

// Rendered returns the parts to display: the shadow while streaming, the
// canonical pre-stream parts otherwise.
func (c *Controller) Rendered() []domain.Part {
	if parts, ok := c.Shadow(); ok {
		return parts
	}
	return domain.CloneParts(c.msg.Parts)
}

// Attach seeds the shadow and opens the subscription. It blocks only while
// the subscription is being opened. A failed open moves the controller to
// Error and returns an error wrapping domain.ErrConnection.
//
// Cancelling ctx tears the subscription down like Detach.
func (c *Controller) Attach(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.StreamIdle {
		state := c.state
		c.mu.Unlock()
		return domain.NewDomainError("Controller.Attach", domain.ErrAlreadyAttached, state.String())
	}
	if !c.msg.Streamable() {
		c.mu.Unlock()
		return domain.NewDomainError("Controller.Attach", domain.ErrNotGenerating, c.msg.ID)
	}
	c.shadow = domain.CloneParts(c.msg.Parts)
	c.state = domain.StreamConnecting
	cctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	c.emit(domain.StreamConnecting, nil)

	sub, err := c.deps.Source.Open(cctx, c.msg.StreamURL())
	if err != nil {
		if c.State() == domain.StreamDetached {
			return nil
		}
		err = fmt.Errorf("%w: %w", domain.ErrConnection, err)
		c.fail(err)
		return domain.WrapOp("Controller.Attach", err)
	}

	c.mu.Lock()
	if c.state != domain.StreamConnecting {
		// Detached while opening.
		c.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	c.sub = sub
	c.state = domain.StreamStreaming
	c.pumped = make(chan struct{})
	pumped := c.pumped
	c.mu.Unlock()

	c.deps.Logger.Debug("stream attached",
		"message_id", c.msg.ID,
		"subscription", c.subID,
	)
	c.publish(ctx, domain.EventStreamAttached, nil)
	c.emit(domain.StreamStreaming, nil)

	go c.pump(cctx, sub, pumped)
	return nil
}

// pump reads frames until the subscription ends or the controller leaves
// the streaming state.
func (c *Controller) pump(ctx context.Context, sub domain.Subscription, pumped chan struct{}) {
	defer close(pumped)
	frames := sub.Frames()
	for {
		select {
		case <-ctx.Done():
			c.Detach()
			return
		case frame, ok := <-frames:
			if !ok {
				c.fail(fmt.Errorf("%w: %w", domain.ErrConnection, errStreamClosed))
				return
			}
			if frame.Err != nil {
				c.fail(fmt.Errorf("%w: %w", domain.ErrConnection, frame.Err))
				return
			}
			c.HandleFrame(frame.Data)
			if c.State().Terminal() {
				return
			}
		}
	}
}

// HandleFrame decodes one raw event and dispatches it. Malformed events are
// skipped; the controller keeps processing subsequent frames.
func (c *Controller) HandleFrame(data []byte) {
	ev, err := domain.DecodeStreamEvent(data)
	if err != nil {
		c.deps.Logger.Debug("skipping malformed stream event",
			"message_id", c.msg.ID,
			"error", err,
		)
		return
	}
	c.Dispatch(ev)
}

// Dispatch applies one decoded event. Events outside the streaming state are
// ignored, which makes done terminal and idempotent.
func (c *Controller) Dispatch(ev domain.StreamEvent) {
	c.mu.Lock()
	if c.state != domain.StreamStreaming {
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case domain.StreamEventStart, domain.StreamEventPing:
		c.mu.Unlock()
		return

	case domain.StreamEventDone:
		c.state = domain.StreamDone
		c.shadow = nil
		c.mu.Unlock()

		c.release()
		c.deps.Logger.Debug("stream done", "message_id", c.msg.ID, "subscription", c.subID)
		c.publish(context.Background(), domain.EventStreamComplete, nil)
		c.emit(domain.StreamDone, nil)
		c.deps.Revalidate()
		return
	}

	next, changed := apply(c.shadow, ev)
	if !changed {
		c.mu.Unlock()
		return
	}
	c.shadow = next
	snapshot := domain.CloneParts(next)
	c.mu.Unlock()

	c.publish(context.Background(), domain.EventStreamUpdated, nil)
	c.emit(domain.StreamStreaming, snapshot)
}

// fail aborts an active stream: the shadow is discarded without persisting
// anything and the subscription is closed. No retry is attempted.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	if !c.state.Active() {
		c.mu.Unlock()
		return
	}
	c.state = domain.StreamError
	c.shadow = nil
	c.mu.Unlock()

	c.release()
	c.deps.Logger.Warn("stream failed, reverting to canonical parts",
		"message_id", c.msg.ID,
		"subscription", c.subID,
		"error", err,
	)
	payload, _ := json.Marshal(domain.StreamFailedPayload{Error: err.Error(), Code: domain.ErrorCodeOf(err)})
	c.publish(context.Background(), domain.EventStreamFailed, payload)
	c.emit(domain.StreamError, nil)
}

// Detach closes the subscription if one is open. It is idempotent and safe
// to call from any goroutine, including OnUpdate callbacks.
func (c *Controller) Detach() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		c.release()
		return
	}
	c.state = domain.StreamDetached
	c.shadow = nil
	c.mu.Unlock()

	c.release()
	c.deps.Logger.Debug("stream detached", "message_id", c.msg.ID, "subscription", c.subID)
	c.publish(context.Background(), domain.EventStreamDetached, nil)
	c.emit(domain.StreamDetached, nil)
}

// Wait blocks until the pump goroutine, if any, has exited.
// It must not be called from an OnUpdate callback.
func (c *Controller) Wait() {
	c.mu.Lock()
	pumped := c.pumped
	c.mu.Unlock()
	if pumped != nil {
		<-pumped
	}
}

// release closes the subscription and cancels its context exactly once.
func (c *Controller) release() {
	c.mu.Lock()
	sub, cancel := c.sub, c.cancel
	c.mu.Unlock()
	if sub == nil && cancel == nil {
		return
	}
	c.closeOnce.Do(func() {
		if cancel != nil {
			cancel()
		}
		if sub != nil {
			if err := sub.Close(); err != nil {
				c.deps.Logger.Debug("close subscription", "message_id", c.msg.ID, "error", err)
			}
		}
	})
}

func (c *Controller) emit(state domain.StreamState, parts []domain.Part) {
	if c.deps.OnUpdate == nil {
		return
	}
	c.deps.OnUpdate(Update{MessageID: c.msg.ID, State: state, Parts: parts})
}

func (c *Controller) publish(ctx context.Context, et domain.EventType, payload json.RawMessage) {
	if c.deps.Bus == nil {
		return
	}
	c.deps.Bus.Publish(ctx, domain.Event{
		Type:      et,
		Timestamp: time.Now(),
		ChatID:    c.deps.ChatID,
		MessageID: c.msg.ID,
		Payload:   payload,
	})
}

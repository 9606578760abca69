package stream

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"creator-chat/internal/domain"
)

// Manager supervises the controllers of one conversation and enforces at most
// one open subscription per message id.
type Manager struct {
	deps ControllerDeps

	mu          sync.Mutex
	controllers map[string]*Controller
	closed      bool
}

// NewManager creates a manager. deps are passed to every controller.
func NewManager(deps ControllerDeps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:        deps,
		controllers: make(map[string]*Controller),
	}
}

// Attach tears down any controller already registered for msg.ID, then
// attaches a fresh one. The new controller is returned even when opening
// the subscription fails, so callers can inspect its state.
func (m *Manager) Attach(ctx context.Context, msg domain.Message) (*Controller, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, domain.NewDomainError("Manager.Attach", domain.ErrInvalidInput, "manager closed")
	}
	prev := m.controllers[msg.ID]
	c := NewController(msg, m.deps)
	m.controllers[msg.ID] = c
	m.mu.Unlock()

	// Detach runs outside the lock: it emits updates that may call back in.
	if prev != nil {
		prev.Detach()
	}
	return c, c.Attach(ctx)
}

// Sync reconciles controllers with the current message list, the way a UI
// effect re-runs when its dependencies change:
//   - a streamable message with no controller, or whose stream URL changed,
//     gets a new controller;
//   - a controller whose message vanished or stopped generating is detached.
//
// Finished controllers for an unchanged stream URL are left alone so a
// revalidation racing the backend does not resubscribe to a completed stream.
func (m *Manager) Sync(ctx context.Context, msgs []domain.Message) {
	want := make(map[string]domain.Message, len(msgs))
	for _, msg := range msgs {
		if msg.Streamable() {
			want[msg.ID] = msg
		}
	}

	var toAttach []domain.Message
	var toDetach []*Controller
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	for id, c := range m.controllers {
		msg, ok := want[id]
		if !ok {
			toDetach = append(toDetach, c)
			delete(m.controllers, id)
			continue
		}
		if msg.StreamURL() != c.StreamURL() {
			toAttach = append(toAttach, msg)
		}
		delete(want, id)
	}
	for _, msg := range want {
		toAttach = append(toAttach, msg)
	}
	m.mu.Unlock()

	for _, c := range toDetach {
		c.Detach()
	}
	for _, msg := range toAttach {
		if _, err := m.Attach(ctx, msg); err != nil {
			m.deps.Logger.Warn("attach stream", "message_id", msg.ID, "error", err)
		}
	}
}

// Controller returns the controller registered for id.
func (m *Manager) Controller(id string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[id]
	return c, ok
}

// Active returns the ids of messages whose stream is connecting or streaming.
func (m *Manager) Active() []string {
	m.mu.Lock()
	cs := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		cs = append(cs, c)
	}
	m.mu.Unlock()

	var ids []string
	for _, c := range cs {
		if c.State().Active() {
			ids = append(ids, c.MessageID())
		}
	}
	slices.Sort(ids)
	return ids
}

// Shadow returns the live shadow parts of message id, if it is streaming.
func (m *Manager) Shadow(id string) ([]domain.Part, bool) {
	c, ok := m.Controller(id)
	if !ok {
		return nil, false
	}
	return c.Shadow()
}

// Detach tears down the controller for id, if any.
func (m *Manager) Detach(id string) {
	m.mu.Lock()
	c, ok := m.controllers[id]
	delete(m.controllers, id)
	m.mu.Unlock()
	if ok {
		c.Detach()
	}
}

// Close detaches every controller and waits for their pumps to exit.
// Subsequent Attach and Sync calls are rejected. Must not be called from an
// OnUpdate callback.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	cs := make([]*Controller, 0, len(m.controllers))
	for id, c := range m.controllers {
		cs = append(cs, c)
		delete(m.controllers, id)
	}
	m.mu.Unlock()

	for _, c := range cs {
		c.Detach()
	}
	for _, c := range cs {
		c.Wait()
	}
}

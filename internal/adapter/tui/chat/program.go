package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"creator-chat/internal/domain"
	"creator-chat/internal/usecase/stream"
)

// Program hosts the chat model in a Bubble Tea program and forwards stream
// updates and bus events into its update loop.
type Program struct {
	logger  *slog.Logger
	bus     domain.EventBus // optional
	program atomic.Pointer[tea.Program]
	opts    []tea.ProgramOption
}

// NewProgram creates a program host. opts are passed to tea.NewProgram
// after the default alt-screen and mouse options.
func NewProgram(logger *slog.Logger, bus domain.EventBus, opts ...tea.ProgramOption) *Program {
	if logger == nil {
		logger = slog.Default()
	}
	return &Program{logger: logger, bus: bus, opts: opts}
}

// Notify is the stream manager's update hook. Updates that arrive before
// Run are dropped; the model re-reads the transcript when it starts.
func (p *Program) Notify(stream.Update) {
	p.send(RefreshMsg{})
}

// Run starts the Bubble Tea program and blocks until it exits.
func (p *Program) Run(ctx context.Context, model tea.Model) error {
	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}, p.opts...)
	prog := tea.NewProgram(model, opts...)
	p.program.Store(prog)
	defer p.program.Store(nil)

	if p.bus != nil {
		unsub1 := p.bus.Subscribe(domain.EventStreamFailed, func(_ context.Context, event domain.Event) {
			var payload domain.StreamFailedPayload
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				p.logger.Debug("decode stream failure payload", "error", err)
			}
			p.send(StreamFailedMsg{MessageID: event.MessageID, Reason: payload.Error})
		})
		unsub2 := p.bus.Subscribe(domain.EventMessagesRefreshed, func(context.Context, domain.Event) {
			p.send(RefreshMsg{})
		})
		defer unsub1()
		defer unsub2()
	}

	// Monitor context cancellation to quit the program.
	stop := context.AfterFunc(ctx, func() { p.send(QuitMsg{}) })
	defer stop()

	_, err := prog.Run()
	return err
}

func (p *Program) send(msg tea.Msg) {
	if prog := p.program.Load(); prog != nil {
		prog.Send(msg)
	}
}

package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"creator-chat/internal/adapter/render"
	"creator-chat/internal/adapter/tui/components"
	"creator-chat/internal/adapter/tui/theme"
	"creator-chat/internal/adapter/tui/uxerror"
	"creator-chat/internal/domain"
)

// Conversation is the query layer the chat screen reads from.
type Conversation interface {
	ChatID() string
	Messages(ctx context.Context) ([]domain.Message, error)
	Revalidate(ctx context.Context) error
}

// Sender submits composer input.
type Sender interface {
	Send(ctx context.Context, chatID, text string, caps domain.Capabilities) (*domain.Message, error)
}

// ModelDeps are dependencies injected into the chat model.
type ModelDeps struct {
	Conversation Conversation
	Sender       Sender
	Renderer     *render.Renderer
	Live         func(messageID string) bool // optional; reports an active shadow
	BackendDown  func() bool                 // optional; reports an open circuit breaker
	Logger       *slog.Logger
}

// Model is the root Bubble Tea model of the chat screen.
type Model struct {
	deps   ModelDeps
	ctx    context.Context
	cancel context.CancelFunc

	chatView  components.ChatViewModel
	input     textinput.Model
	statusBar components.StatusBarModel
	spinner   spinner.Model

	msgs      []domain.Message
	webSearch bool
	sending   bool
	errText   string // last send failure, shown until the next successful send
	notice    string // transient stream notice
	width     int
	height    int
	quitting  bool
}

// NewModel creates the chat model.
func NewModel(deps ModelDeps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	ti := textinput.New()
	ti.Placeholder = "Message..."
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.CharLimit = 0
	ti.Focus()

	sb := components.NewStatusBar()
	sb.Hints = defaultHints()
	sb.ChatID = deps.Conversation.ChatID()

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		chatView:  components.NewChatView(),
		input:     ti,
		statusBar: sb,
		spinner:   s,
	}
	m.syncToggles()
	return m
}

// Init loads the transcript and refetches it from the backend.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		func() tea.Msg { return RefreshMsg{} },
		revalidateCmd(m.ctx, m.deps.Conversation),
	)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sendDoneMsg:
		m.sending = false
		m.statusBar.Extra = ""
		m.syncHealth()
		if msg.err != nil {
			// Input is kept so the user can retry.
			m.errText = uxerror.Humanize(msg.err).Render()
			m.layout()
			return m, nil
		}
		if m.input.Value() == msg.text {
			m.input.Reset()
		}
		m.errText = ""
		m.layout()
		m.reload()
		return m, nil

	case revalidatedMsg:
		m.syncHealth()
		if msg.err != nil {
			m.notice = theme.SymbolWarning + " " + uxerror.Humanize(msg.err).Title
		}
		m.layout()
		m.reload()
		return m, nil

	case RefreshMsg:
		m.reload()
		return m, nil

	case StreamFailedMsg:
		m.notice = theme.SymbolWarning + " Stream interrupted; showing last saved content"
		m.deps.Logger.Debug("stream failed", "message_id", msg.MessageID, "reason", msg.Reason)
		m.layout()
		m.reload()
		return m, nil

	case QuitMsg:
		m.quitting = true
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	if _, isMouse := msg.(tea.MouseMsg); !isMouse {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		m.cancel()
		return m, tea.Quit

	case tea.KeyCtrlW:
		m.webSearch = !m.webSearch
		m.syncToggles()
		return m, nil

	case tea.KeyCtrlR:
		m.notice = ""
		m.layout()
		return m, revalidateCmd(m.ctx, m.deps.Conversation)

	case tea.KeyEnter:
		return m.submit()

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a send with the current toggles. Empty input and a send
// already in flight are ignored.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if m.sending || strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.sending = true
	m.notice = ""
	m.statusBar.Extra = theme.SymbolSpinner + " Sending..."
	caps := domain.Capabilities{WebSearch: m.webSearch}
	return m, sendCmd(m.ctx, m.deps.Sender, m.deps.Conversation.ChatID(), text, caps)
}

// reload re-reads the transcript from the conversation.
func (m *Model) reload() {
	msgs, err := m.deps.Conversation.Messages(m.ctx)
	if err != nil {
		m.deps.Logger.Warn("load messages", "error", err)
		return
	}
	m.msgs = msgs
	m.chatView.SetContent(m.transcript())
}

func (m Model) transcript() string {
	if len(m.msgs) == 0 {
		return theme.TextMuted.Render("  No messages yet.")
	}
	blocks := make([]string, len(m.msgs))
	for i, msg := range m.msgs {
		live := m.deps.Live != nil && m.deps.Live(msg.ID)
		blocks[i] = m.deps.Renderer.Message(msg, live)
	}
	return strings.Join(blocks, "\n\n")
}

// syncHealth shows a status bar alert while the backend breaker is open.
func (m *Model) syncHealth() {
	m.statusBar.Alert = ""
	if m.deps.BackendDown != nil && m.deps.BackendDown() {
		m.statusBar.Alert = "backend unavailable"
	}
}

func (m *Model) syncToggles() {
	m.statusBar.Tools = []components.ToolToggle{{Label: "web search", On: m.webSearch}}
}

// View renders the entire chat UI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 {
		return "  Initializing..."
	}

	parts := []string{m.chatView.View(), theme.Divider(m.width)}
	if m.notice != "" {
		parts = append(parts, theme.TextWarning.Render(m.notice))
	}
	if m.errText != "" {
		parts = append(parts, theme.ErrorBox.Render(m.errText))
	}
	input := m.input.View()
	if m.sending {
		input += "  " + m.spinner.View()
	}
	parts = append(parts, input, m.statusBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// layout recalculates sizes for all sub-models.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	reserved := 3 // divider, input, status bar
	if m.notice != "" {
		reserved++
	}
	if m.errText != "" {
		reserved += lipgloss.Height(m.errText)
	}
	contentH := m.height - reserved
	if contentH < 3 {
		contentH = 3
	}

	m.statusBar.SetWidth(m.width)
	m.input.Width = m.width - 4
	m.chatView.SetSize(m.width, contentH)
}

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "Enter", Desc: "Send"},
		{Key: "Ctrl+W", Desc: "Web search"},
		{Key: "Ctrl+R", Desc: "Refresh"},
		{Key: "Ctrl+C", Desc: "Quit"},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"creator-chat/internal/adapter/backend"
	"creator-chat/internal/adapter/render"
	"creator-chat/internal/adapter/store"
	"creator-chat/internal/adapter/transport"
	"creator-chat/internal/domain"
	"creator-chat/internal/infra/config"
	"creator-chat/internal/infra/logger"
	"creator-chat/internal/infra/tracer"
	"creator-chat/internal/usecase"
	"creator-chat/internal/usecase/eventbus"
	"creator-chat/internal/usecase/stream"
)

// app is the wired client for one conversation.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	bus      *eventbus.Bus
	backend  *backend.Client
	conv     *usecase.Conversation
	streams  *stream.Manager
	sender   *usecase.Sender
	renderer *render.Renderer

	closers []func()
}

// appOptions tune wiring for a command.
type appOptions struct {
	OnUpdate  func(stream.Update) // optional stream update hook
	TraceOut  io.Writer           // stdout exporter destination; nil = stderr
	NeedsChat bool                // a conversation id is required
}

// loadConfig loads the config file and applies CLI overrides.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath(flags))
	if err != nil {
		return nil, err
	}
	if flags.ChatID != "" {
		cfg.Backend.ChatID = flags.ChatID
	}
	if flags.LogLevel != "" {
		cfg.Logger.Level = flags.LogLevel
	}
	return cfg, nil
}

// newApp wires the client. ctx scopes every stream subscription.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if opts.NeedsChat && cfg.Backend.ChatID == "" {
		return nil, fmt.Errorf("%w: a chat id is required (--chat or backend.chat_id)", domain.ErrInvalidInput)
	}

	// 1. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.closers = append(a.closers, func() { _ = logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer, opts.TraceOut)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", "error", err)
		}
	})

	// 2. Event bus
	a.bus = eventbus.New(log)
	a.closers = append(a.closers, a.bus.Close)

	// 3. Message store
	ms, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if c, ok := ms.(io.Closer); ok {
		a.closers = append(a.closers, func() { _ = c.Close() })
	}

	// 4. Backend and push-channel transports
	token := domain.StaticToken(cfg.Backend.Token)
	a.backend = backend.NewClient(cfg.Backend, backend.NewHTTPClient(cfg.Backend), token, log.With("component", "backend"))
	dialer := &transport.Dialer{
		Mode: cfg.Stream.Transport,
		SSE:  transport.NewSSESource(backend.NewStreamHTTPClient(cfg.Backend), token, log.With("component", "sse")),
		// The WebSocket handshake needs HTTP/1.1, so it does not share the pooled client.
		WebSocket: transport.NewWebSocketSource(nil, token, cfg.Stream.ReadLimit, log.With("component", "websocket")),
	}

	// 5. Conversation, streams and send pipeline
	a.conv = usecase.NewConversation(usecase.ConversationDeps{
		ChatID:  cfg.Backend.ChatID,
		Backend: a.backend,
		Store:   ms,
		Bus:     a.bus,
		Logger:  log,
	})
	revalidate := a.conv.Revalidator(ctx)
	if cfg.Backend.ChatID == "" {
		// watch without a conversation has nothing to refetch.
		revalidate = func() {}
	}
	a.streams = stream.NewManager(stream.ControllerDeps{
		Source:     dialer,
		Revalidate: revalidate,
		Bus:        a.bus,
		Logger:     log.With("component", "stream"),
		OnUpdate:   opts.OnUpdate,
		ChatID:     cfg.Backend.ChatID,
	})
	a.conv.SetStreams(a.streams)
	a.closers = append(a.closers, a.streams.Close)

	a.sender = usecase.NewSender(usecase.SenderDeps{
		Backend:    a.backend,
		Store:      ms,
		Revalidate: revalidate,
		ChatID:     a.conv.ChatID,
		Bus:        a.bus,
		Logger:     log,
	})

	// 6. Renderer
	a.renderer, err = newRenderer(cfg.Render, log)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	log.Debug("client ready",
		"chat_id", cfg.Backend.ChatID,
		"backend", cfg.Backend.BaseURL,
		"transport", cfg.Stream.Transport,
		"store", cfg.Store.Driver,
	)
	return a, nil
}

// Close releases resources in reverse wiring order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openStore(cfg config.StoreConfig) (domain.MessageStore, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := store.NewSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory", "":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func newRenderer(cfg config.RenderConfig, log *slog.Logger) (*render.Renderer, error) {
	r, err := render.NewRenderer(render.DefaultRegistry(), render.Options{
		Markdown: cfg.Markdown,
		Width:    cfg.Width,
	}, log.With("component", "render"))
	if err != nil {
		return nil, err
	}
	for tool, path := range cfg.ResultSchemas {
		schema, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s result schema: %w", tool, err)
		}
		if err := r.SetResultSchema(tool, schema); err != nil {
			return nil, err
		}
	}
	return r, nil
}

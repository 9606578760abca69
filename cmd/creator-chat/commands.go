package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sony/gobreaker/v2"

	"creator-chat/internal/adapter/render"
	"creator-chat/internal/adapter/tui/chat"
	"creator-chat/internal/domain"
	"creator-chat/internal/infra/config"
	"creator-chat/internal/usecase/stream"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// runChat opens the interactive chat screen.
func runChat(flags cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// Terminal output would corrupt the alt screen.
	switch cfg.Logger.Output {
	case "", "stdout", "stderr":
		cfg.Logger.Output = "discard"
	}

	ctx, cancel := signalContext()
	defer cancel()

	// ui is assigned before the program starts, and streams only attach once it runs.
	var ui *chat.Program
	a, err := newApp(ctx, cfg, appOptions{
		OnUpdate:  func(u stream.Update) { ui.Notify(u) },
		TraceOut:  io.Discard,
		NeedsChat: true,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	ui = chat.NewProgram(a.log, a.bus)

	model := chat.NewModel(chat.ModelDeps{
		Conversation: a.conv,
		Sender:       a.sender,
		Renderer:     a.renderer,
		Live: func(id string) bool {
			_, ok := a.streams.Shadow(id)
			return ok
		},
		BackendDown: func() bool { return a.backend.BreakerState() == gobreaker.StateOpen },
		Logger:      a.log,
	})
	return ui.Run(ctx, model)
}

// runSend sends one message, follows any reply that is still generating and
// prints the conversation.
func runSend(flags cliFlags, out io.Writer) error {
	text := strings.Join(flags.Args, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message text is required", domain.ErrInvalidInput)
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	onUpdate, changed := coalesced()
	a, err := newApp(ctx, cfg, appOptions{OnUpdate: onUpdate, NeedsChat: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return sendAndFollow(ctx, a, changed, text, domain.Capabilities{WebSearch: flags.WebSearch}, out)
}

// coalesced returns an update hook that collapses bursts of updates into a
// single pending signal.
func coalesced() (func(stream.Update), <-chan struct{}) {
	changed := make(chan struct{}, 1)
	return func(stream.Update) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, changed
}

func sendAndFollow(ctx context.Context, a *app, changed <-chan struct{}, text string, caps domain.Capabilities, out io.Writer) error {
	if _, err := a.sender.Send(ctx, "", text, caps); err != nil {
		return err
	}

	for len(a.streams.Active()) > 0 {
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// Close waits for the pumps, and with them the final revalidation.
	a.streams.Close()

	msgs, err := a.conv.Messages(ctx)
	if err != nil {
		return err
	}
	printTranscript(out, a.renderer, msgs)
	return nil
}

// runWatch attaches to one stream URL and prints the shadow on every change.
func runWatch(flags cliFlags, out io.Writer) error {
	if flags.URL == "" {
		return fmt.Errorf("%w: --url is required", domain.ErrInvalidInput)
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	updates := make(chan stream.Update, 64)
	a, err := newApp(ctx, cfg, appOptions{
		OnUpdate: func(u stream.Update) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	id := flags.MessageID
	if id == "" {
		id = "watch"
	}
	msg := domain.Message{
		ID:         id,
		Author:     domain.Author{Type: domain.AuthorAssistant},
		Generation: &domain.Generation{Status: domain.GenerationGenerating, StreamURL: flags.URL},
	}
	if _, err := a.streams.Attach(ctx, msg); err != nil {
		return err
	}
	return printUpdates(ctx, out, a.renderer, updates)
}

// printUpdates prints every shadow change until the stream reaches a
// terminal state.
func printUpdates(ctx context.Context, out io.Writer, r *render.Renderer, updates <-chan stream.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			if u.Parts != nil {
				views := r.Parts(u.Parts)
				blocks := make([]string, len(views))
				for i, v := range views {
					blocks[i] = render.Style(v, u.Parts[i])
				}
				fmt.Fprintf(out, "%s\n---\n", strings.Join(blocks, "\n"))
			}
			switch u.State {
			case domain.StreamDone:
				fmt.Fprintln(out, "done")
				return nil
			case domain.StreamError:
				return fmt.Errorf("%w: stream ended before done", domain.ErrConnection)
			case domain.StreamDetached:
				return nil
			}
		}
	}
}

func printTranscript(out io.Writer, r *render.Renderer, msgs []domain.Message) {
	for i, msg := range msgs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, r.Message(msg, false))
	}
}

// runEncrypt prints an "enc:" config value for the first argument.
func runEncrypt(flags cliFlags, out io.Writer) error {
	if len(flags.Args) != 1 {
		return errors.New("usage: creator-chat encrypt VALUE")
	}
	passphrase := os.Getenv("CREATORCHAT_CONFIG_KEY")
	if passphrase == "" {
		return errors.New("CREATORCHAT_CONFIG_KEY is not set")
	}
	enc, err := config.EncryptValue(flags.Args[0], passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "enc:%s\n", enc)
	return nil
}

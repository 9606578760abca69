// Package transport implements push-channel subscriptions (domain.StreamSource)
// over Server-Sent Events and WebSocket.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"creator-chat/internal/domain"
)

// maxEventSize bounds a single SSE line. Tool results can be large.
const maxEventSize = 1 << 20

// SSESource opens push channels as text/event-stream GET requests.
type SSESource struct {
	client *http.Client
	token  domain.TokenFunc
	logger *slog.Logger
}

// NewSSESource creates an SSE source. client must not set a Timeout, since
// streams stay open for the whole generation; nil uses a default client.
func NewSSESource(client *http.Client, token domain.TokenFunc, logger *slog.Logger) *SSESource {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SSESource{client: client, token: token, logger: logger}
}

// Open issues the stream request and starts reading events.
func (s *SSESource) Open(ctx context.Context, streamURL string) (domain.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if err := authorize(ctx, req.Header, s.token); err != nil {
		cancel()
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open stream: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	sub := &sseSubscription{
		frames: make(chan domain.Frame, 16),
		body:   resp.Body,
		cancel: cancel,
	}
	go sub.read(ctx, s.logger)
	return sub, nil
}

type sseSubscription struct {
	frames chan domain.Frame
	body   io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (s *sseSubscription) Frames() <-chan domain.Frame { return s.frames }

func (s *sseSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// read parses the event stream. Each event's data lines are joined with "\n"
// and delivered on a blank line. Fields other than data are ignored.
func (s *sseSubscription) read(ctx context.Context, logger *slog.Logger) {
	defer close(s.frames)
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data [][]byte
	flush := func() bool {
		if len(data) == 0 {
			return true
		}
		payload := bytes.Join(data, []byte("\n"))
		data = data[:0]
		select {
		case s.frames <- domain.Frame{Data: payload}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Bytes()

		if len(line) == 0 {
			if !flush() {
				return
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		if !bytes.Equal(field, []byte("data")) {
			continue
		}
		value = bytes.TrimPrefix(value, []byte(" "))
		data = append(data, bytes.Clone(value))
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Debug("sse read failed", "error", err)
		select {
		case s.frames <- domain.Frame{Err: fmt.Errorf("read stream: %w", err)}:
		case <-ctx.Done():
		}
		return
	}
	flush()
}

// authorize sets the bearer token header when a token is available.
func authorize(ctx context.Context, h http.Header, token domain.TokenFunc) error {
	if token == nil {
		return nil
	}
	tok, err := token(ctx)
	if err != nil {
		return fmt.Errorf("stream token: %w", err)
	}
	if tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return nil
}

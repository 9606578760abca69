package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"creator-chat/internal/domain"
)

// defaultReadLimit caps a single WebSocket message.
const defaultReadLimit = 1 << 20

// WebSocketSource opens push channels as WebSocket connections. Each text
// message is one event.
type WebSocketSource struct {
	client    *http.Client
	token     domain.TokenFunc
	readLimit int64
	logger    *slog.Logger
}

// NewWebSocketSource creates a WebSocket source. A readLimit of zero uses
// the default of 1 MiB.
func NewWebSocketSource(client *http.Client, token domain.TokenFunc, readLimit int64, logger *slog.Logger) *WebSocketSource {
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketSource{client: client, token: token, readLimit: readLimit, logger: logger}
}

// Open dials streamURL and starts the read loop.
func (s *WebSocketSource) Open(ctx context.Context, streamURL string) (domain.Subscription, error) {
	header := http.Header{}
	if err := authorize(ctx, header, s.token); err != nil {
		return nil, err
	}

	conn, resp, err := websocket.Dial(ctx, streamURL, &websocket.DialOptions{
		HTTPClient: s.client,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial stream: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	conn.SetReadLimit(s.readLimit)

	ctx, cancel := context.WithCancel(ctx)
	sub := &wsSubscription{
		frames: make(chan domain.Frame, 16),
		conn:   conn,
		cancel: cancel,
	}
	go sub.read(ctx, s.logger)
	return sub, nil
}

type wsSubscription struct {
	frames chan domain.Frame
	conn   *websocket.Conn
	cancel context.CancelFunc
	once   sync.Once
}

func (s *wsSubscription) Frames() <-chan domain.Frame { return s.frames }

func (s *wsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close(websocket.StatusNormalClosure, "")
		s.cancel()
	})
	return err
}

func (s *wsSubscription) read(ctx context.Context, logger *slog.Logger) {
	defer close(s.frames)

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return
			}
			logger.Debug("websocket read failed", "error", err)
			select {
			case s.frames <- domain.Frame{Err: fmt.Errorf("read stream: %w", err)}:
			case <-ctx.Done():
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		select {
		case s.frames <- domain.Frame{Data: data}:
		case <-ctx.Done():
			return
		}
	}
}

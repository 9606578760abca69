package transport

import (
	"context"
	"fmt"
	"net/url"

	"creator-chat/internal/domain"
)

// Transport modes.
const (
	ModeAuto      = "auto"
	ModeSSE       = "sse"
	ModeWebSocket = "websocket"
)

// Dialer routes a stream URL to the SSE or WebSocket source.
//
// In auto mode http(s) URLs use SSE and ws(s) URLs use WebSocket. A forced
// mode rewrites the URL scheme to match the selected transport.
type Dialer struct {
	Mode      string
	SSE       domain.StreamSource
	WebSocket domain.StreamSource
}

// Open implements domain.StreamSource.
func (d *Dialer) Open(ctx context.Context, streamURL string) (domain.Subscription, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, domain.NewDomainError("Dialer.Open", domain.ErrInvalidInput, err.Error())
	}

	mode := d.Mode
	if mode == "" || mode == ModeAuto {
		switch u.Scheme {
		case "http", "https":
			mode = ModeSSE
		case "ws", "wss":
			mode = ModeWebSocket
		default:
			return nil, domain.NewDomainError("Dialer.Open", domain.ErrInvalidInput,
				fmt.Sprintf("unsupported stream scheme %q", u.Scheme))
		}
	}

	switch mode {
	case ModeSSE:
		u.Scheme = swapScheme(u.Scheme, map[string]string{"ws": "http", "wss": "https"})
		return d.SSE.Open(ctx, u.String())
	case ModeWebSocket:
		u.Scheme = swapScheme(u.Scheme, map[string]string{"http": "ws", "https": "wss"})
		return d.WebSocket.Open(ctx, u.String())
	default:
		return nil, domain.NewDomainError("Dialer.Open", domain.ErrInvalidInput,
			fmt.Sprintf("unknown transport mode %q", mode))
	}
}

func swapScheme(scheme string, m map[string]string) string {
	if s, ok := m[scheme]; ok {
		return s
	}
	return scheme
}

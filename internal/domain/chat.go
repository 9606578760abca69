package domain

import "context"

// MessageStore holds the canonical, ordered message list of each conversation.
// Streaming never writes to it; only revalidation replaces its contents.
type MessageStore interface {
	// List returns the messages of chatID ordered by CreatedAt ascending,
	// ties broken by insertion order. The returned slice is a copy.
	List(ctx context.Context, chatID string) ([]Message, error)
	// ReplaceAll atomically replaces the messages of chatID.
	ReplaceAll(ctx context.Context, chatID string, msgs []Message) error
}

// Frame is one unit delivered by a push-channel subscription. A frame with a
// non-nil Err reports a transport failure and is the last frame delivered.
type Frame struct {
	Data []byte
	Err  error
}

// Subscription is an open push-channel read. Frames is closed once the
// subscription ends, whether by Close, a transport error or end of stream.
type Subscription interface {
	Frames() <-chan Frame
	// Close releases the subscription. Safe to call more than once.
	Close() error
}

// StreamSource opens push-channel subscriptions. Open is the only
// suspension point of the streaming core.
type StreamSource interface {
	Open(ctx context.Context, streamURL string) (Subscription, error)
}

// SendRequest is the client-to-backend send call.
// PreviousResponseID is nil when no assistant turn exists yet and encodes as null.
type SendRequest struct {
	ChatID             string   `json:"chatId"`
	Parts              []Part   `json:"parts"`
	EnabledTools       []string `json:"enabledTools"`
	PreviousResponseID *string  `json:"previousResponseId"`
}

// ChatBackend is the remote collaborator owning message persistence.
// Expected failures are returned as error values.
type ChatBackend interface {
	SendMessage(ctx context.Context, req SendRequest) (*Message, error)
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
}

// Revalidator refetches canonical message state. Its effect is owned by the
// query layer; the streaming core only triggers it.
type Revalidator func()

// ChatIDFunc supplies the current conversation id.
type ChatIDFunc func() string

// TokenFunc supplies the bearer token used by transports.
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken returns a TokenFunc yielding token. An empty token yields "".
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

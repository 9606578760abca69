// Package backend is the HTTP client of the chat backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"creator-chat/internal/domain"
	"creator-chat/internal/infra/config"
	"creator-chat/internal/infra/tracer"
)

// maxResponseBody is the maximum response body size read from the backend.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// APIError is a structured error returned by the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses to domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusTooManyRequests:
		return domain.ErrRateLimit
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	}
	return nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type sendResponse struct {
	Message *domain.Message `json:"message"`
}

type listResponse struct {
	Messages []domain.Message `json:"messages"`
}

// Client implements domain.ChatBackend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	token   domain.TokenFunc
	limiter *rate.Limiter                     // nil = unlimited
	breaker *gobreaker.CircuitBreaker[[]byte] // nil = disabled
	logger  *slog.Logger
}

// NewClient creates a backend client. A nil httpClient uses NewHTTPClient(cfg).
func NewClient(cfg config.BackendConfig, httpClient *http.Client, token domain.TokenFunc, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		token:   token,
		breaker: newBreaker(cfg.Breaker, logger),
		logger:  logger,
	}
	if cfg.RateLimit.PerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	}
	return c
}

// SendMessage posts a user message. Throttled sends fail fast with
// domain.ErrRateLimit; an open breaker fails with domain.ErrCircuitOpen.
func (c *Client) SendMessage(ctx context.Context, req domain.SendRequest) (*domain.Message, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, domain.NewDomainError("Client.SendMessage", domain.ErrRateLimit, "client-side send limit")
	}
	if req.EnabledTools == nil {
		req.EnabledTools = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal send request: %w", err)
	}

	respBody, err := c.call(ctx, "backend.send", http.MethodPost, c.messagesURL(req.ChatID), body)
	if err != nil {
		return nil, err
	}

	var resp sendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode send response: %w", err)
	}
	if resp.Message == nil {
		return nil, errors.New("decode send response: missing message")
	}
	return resp.Message, nil
}

// ListMessages fetches the canonical messages of chatID.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	respBody, err := c.call(ctx, "backend.list", http.MethodGet, c.messagesURL(chatID), nil)
	if err != nil {
		return nil, err
	}
	var resp listResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	return resp.Messages, nil
}

// BreakerState reports the circuit breaker state for status displays.
func (c *Client) BreakerState() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}

func (c *Client) messagesURL(chatID string) string {
	return c.baseURL + "/chats/" + url.PathEscape(chatID) + "/messages"
}

// call runs one request through the breaker inside a span.
func (c *Client) call(ctx context.Context, span, method, target string, body []byte) ([]byte, error) {
	ctx, sp := tracer.StartSpan(ctx, span,
		trace.WithAttributes(tracer.StringAttr("http.method", method)),
	)
	defer sp.End()

	do := func() ([]byte, error) { return c.do(ctx, method, target, body) }

	var (
		out []byte
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(do)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = domain.NewDomainError(span, domain.ErrCircuitOpen, err.Error())
		}
	} else {
		out, err = do()
	}
	if err != nil {
		tracer.RecordError(sp, err)
		return nil, err
	}
	tracer.SetOK(sp)
	return out, nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("backend token: %w", err)
		}
		if tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, parseAPIError(httpResp.StatusCode, respBody)
	}
	c.logger.Debug("backend call", "method", method, "url", target, "status", httpResp.StatusCode)
	return respBody, nil
}

// parseAPIError decodes the {"error":{"code","message"}} envelope, falling
// back to the raw body.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Error.Code != "" || env.Error.Message != "") {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		return apiErr
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr.Message = msg
	return apiErr
}

// Compile-time interface check.
var _ domain.ChatBackend = (*Client)(nil)

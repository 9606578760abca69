package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creator-chat/internal/domain"
	"creator-chat/internal/usecase/eventbus"
)

type harness struct {
	src         *fakeSource
	rec         *recorder
	revalidated atomic.Int32
	ctrl        *Controller
}

func newHarness(t *testing.T, msg domain.Message) *harness {
	t.Helper()
	h := &harness{src: &fakeSource{}, rec: &recorder{}}
	h.ctrl = NewController(msg, ControllerDeps{
		Source:     h.src,
		Revalidate: func() { h.revalidated.Add(1) },
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnUpdate:   h.rec.record,
	})
	return h
}

func (h *harness) attach(t *testing.T) *fakeSub {
	t.Helper()
	require.NoError(t, h.ctrl.Attach(context.Background()))
	require.Equal(t, domain.StreamStreaming, h.ctrl.State())
	return h.src.sub(0)
}

func TestChunkConcatenation(t *testing.T) {
	sequences := [][]string{
		{"a"},
		{"Hello", " ", "world"},
		{"", "x", ""},
		{"multi\nline", " ünïcode", " 🚀"},
	}
	for _, seq := range sequences {
		t.Run(strings.Join(seq, "|"), func(t *testing.T) {
			h := newHarness(t, generating("m1"))
			h.attach(t)

			for _, c := range seq {
				h.ctrl.Dispatch(chunk(c))
			}

			parts, ok := h.ctrl.Shadow()
			require.True(t, ok)
			require.Len(t, parts, 1)
			assert.Equal(t, domain.TextPart(strings.Join(seq, "")), parts[0])
		})
	}
}

func TestReplaySubstitution(t *testing.T) {
	h := newHarness(t, generating("m1"))
	h.attach(t)

	h.ctrl.Dispatch(replay("X"))
	h.ctrl.Dispatch(replay("Y"))

	parts, ok := h.ctrl.Shadow()
	require.True(t, ok)
	assert.Equal(t, []domain.Part{domain.TextPart("Y")}, parts)
}

func TestReplayAfterChunksResendsCumulativeContent(t *testing.T) {
	h := newHarness(t, generating("m1"))
	h.attach(t)

	h.ctrl.Dispatch(chunk("Hel"))
	h.ctrl.Dispatch(chunk("lo"))
	// Reconnect: the server resends everything so far.
	h.ctrl.Dispatch(replay("Hello"))
	h.ctrl.Dispatch(chunk(" world"))

	parts, _ := h.ctrl.Shadow()
	assert.Equal(t, []domain.Part{domain.TextPart("Hello world")}, parts)
}

func TestToolNonMerging(t *testing.T) {
	h := newHarness(t, generating("m1"))
	h.attach(t)

	h.ctrl.Dispatch(chunk("before"))
	h.ctrl.Dispatch(tool("lookup", `{"x":1}`))
	h.ctrl.Dispatch(tool("lookup", `{"x":2}`))
	h.ctrl.Dispatch(chunk("after"))

	parts, _ := h.ctrl.Shadow()
	assert.Equal(t, []domain.Part{
		domain.TextPart("before"),
		domain.ToolPart("lookup", nil, json.RawMessage(`{"x":1}`)),
		domain.ToolPart("lookup", nil, json.RawMessage(`{"x":2}`)),
		domain.TextPart("after"),
	}, parts)
}

func TestShadowSeededFromCanonicalParts(t *testing.T) {
	p0 := []domain.Part{domain.TextPart("earlier")}
	msg := generating("m1", p0...)
	h := newHarness(t, msg)
	h.attach(t)

	h.ctrl.Dispatch(chunk(" more"))

	parts, _ := h.ctrl.Shadow()
	assert.Equal(t, []domain.Part{domain.TextPart("earlier more")}, parts)
	assert.Equal(t, "earlier", msg.Parts[0].Value, "persisted message must not be mutated")
}

func TestTerminalIdempotence(t *testing.T) {
	h := newHarness(t, generating("m1"))
	sub := h.attach(t)

	h.ctrl.Dispatch(chunk("text"))
	h.ctrl.Dispatch(done)
	h.ctrl.Dispatch(done)
	h.ctrl.Dispatch(chunk("late"))
	h.ctrl.Dispatch(tool("late", ""))
	h.ctrl.Dispatch(done)
	h.ctrl.Wait()

	assert.Equal(t, domain.StreamDone, h.ctrl.State())
	assert.Equal(t, int32(1), h.revalidated.Load())
	assert.Equal(t, int32(1), sub.closes.Load())

	_, ok := h.ctrl.Shadow()
	assert.False(t, ok, "shadow is discarded after done")
	assert.Equal(t, []domain.Part{domain.TextPart("text")}, h.rec.lastStreamingParts())
}

func TestErrorReversion(t *testing.T) {
	p0 := []domain.Part{
		domain.TextPart("canonical"),
		domain.ToolPart("lookup", json.RawMessage(`{"q":1}`), nil),
	}
	h := newHarness(t, generating("m1", p0...))
	sub := h.attach(t)

	sub.sendEvent(t, map[string]string{"type": "chunk", "chunk": "partial"})
	sub.sendEvent(t, map[string]string{"type": "chunk", "chunk": " text"})
	sub.frames <- domain.Frame{Err: errors.New("connection reset")}
	h.ctrl.Wait()

	assert.Equal(t, domain.StreamError, h.ctrl.State())
	assert.Equal(t, p0, h.ctrl.Rendered())
	_, ok := h.ctrl.Shadow()
	assert.False(t, ok)
	assert.Equal(t, int32(0), h.revalidated.Load(), "errors never revalidate")
	assert.Equal(t, int32(1), sub.closes.Load())
}

func TestScenarioA(t *testing.T) {
	h := newHarness(t, generating("m1"))
	sub := h.attach(t)

	sub.send(t, `{"type":"start"}`)
	sub.send(t, `{"type":"chunk","chunk":"Hello"}`)
	sub.send(t, `{"type":"chunk","chunk":" world"}`)
	sub.send(t, `{"type":"tool","toolResult":{"type":"tool","name":"lookup","result":{"x":1}}}`)
	sub.send(t, `{"type":"done"}`)
	h.ctrl.Wait()

	assert.Equal(t, []domain.Part{
		domain.TextPart("Hello world"),
		domain.ToolPart("lookup", nil, json.RawMessage(`{"x":1}`)),
	}, h.rec.lastStreamingParts())
	assert.Equal(t, int32(1), h.revalidated.Load())
	assert.Equal(t, domain.StreamDone, h.ctrl.State())
	assert.Equal(t, []domain.StreamState{
		domain.StreamConnecting, domain.StreamStreaming, domain.StreamDone,
	}, h.rec.states())
}

func TestMalformedEventsSkipped(t *testing.T) {
	h := newHarness(t, generating("m1"))
	sub := h.attach(t)

	sub.send(t, `{"type":"chunk","chunk":"a"}`)
	sub.send(t, `not json`)
	sub.send(t, `{"type":"mystery"}`)
	sub.send(t, `{"type":"tool"}`)
	sub.send(t, `{"type":"chunk","chunk":"b"}`)
	sub.send(t, `{"type":"done"}`)
	h.ctrl.Wait()

	assert.Equal(t, domain.StreamDone, h.ctrl.State())
	assert.Equal(t, []domain.Part{domain.TextPart("ab")}, h.rec.lastStreamingParts())
}

func TestStartAndPingAreNoops(t *testing.T) {
	h := newHarness(t, generating("m1", domain.TextPart("x")))
	h.attach(t)

	h.ctrl.Dispatch(domain.StreamEvent{Type: domain.StreamEventStart})
	h.ctrl.Dispatch(domain.StreamEvent{Type: domain.StreamEventPing})

	parts, ok := h.ctrl.Shadow()
	require.True(t, ok)
	assert.Equal(t, []domain.Part{domain.TextPart("x")}, parts)
	assert.Nil(t, h.rec.lastStreamingParts(), "no mutation update for no-op events")
}

func TestStreamClosedBeforeDoneIsError(t *testing.T) {
	h := newHarness(t, generating("m1", domain.TextPart("p0")))
	sub := h.attach(t)

	sub.send(t, `{"type":"chunk","chunk":"lost"}`)
	close(sub.frames)
	h.ctrl.Wait()

	assert.Equal(t, domain.StreamError, h.ctrl.State())
	assert.Equal(t, []domain.Part{domain.TextPart("p0")}, h.ctrl.Rendered())
}

func TestAttachRequiresGenerating(t *testing.T) {
	idle := domain.Message{ID: "m1", Generation: &domain.Generation{Status: domain.GenerationIdle, StreamURL: "u"}}
	h := newHarness(t, idle)

	err := h.ctrl.Attach(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotGenerating)
	assert.Equal(t, domain.StreamIdle, h.ctrl.State())
	assert.Zero(t, h.src.opened())

	noURL := domain.Message{ID: "m2", Generation: &domain.Generation{Status: domain.GenerationGenerating}}
	h = newHarness(t, noURL)
	assert.ErrorIs(t, h.ctrl.Attach(context.Background()), domain.ErrNotGenerating)
}

func TestAttachTwiceRejected(t *testing.T) {
	h := newHarness(t, generating("m1"))
	h.attach(t)

	err := h.ctrl.Attach(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyAttached)
	assert.Equal(t, 1, h.src.opened())
}

func TestAttachOpenFailure(t *testing.T) {
	h := newHarness(t, generating("m1", domain.TextPart("p0")))
	h.src.openErr = errors.New("dial tcp: refused")

	err := h.ctrl.Attach(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Equal(t, domain.StreamError, h.ctrl.State())
	assert.Equal(t, []domain.Part{domain.TextPart("p0")}, h.ctrl.Rendered())
	h.ctrl.Wait() // no pump was started; must not block
}

func TestDetachIdempotent(t *testing.T) {
	h := newHarness(t, generating("m1"))
	sub := h.attach(t)

	h.ctrl.Dispatch(chunk("partial"))
	h.ctrl.Detach()
	h.ctrl.Detach()
	h.ctrl.Wait()

	assert.Equal(t, domain.StreamDetached, h.ctrl.State())
	assert.Equal(t, int32(1), sub.closes.Load())
	assert.Equal(t, int32(0), h.revalidated.Load())

	h.ctrl.Dispatch(chunk("ignored"))
	_, ok := h.ctrl.Shadow()
	assert.False(t, ok)
}

func TestDetachBeforeAttach(t *testing.T) {
	h := newHarness(t, generating("m1"))
	h.ctrl.Detach()

	assert.Equal(t, domain.StreamDetached, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.Attach(context.Background()), domain.ErrAlreadyAttached)
	assert.Zero(t, h.src.opened())
}

func TestDetachAfterDoneKeepsDone(t *testing.T) {
	h := newHarness(t, generating("m1"))
	sub := h.attach(t)

	h.ctrl.Dispatch(done)
	h.ctrl.Detach()
	h.ctrl.Wait()

	assert.Equal(t, domain.StreamDone, h.ctrl.State())
	assert.Equal(t, int32(1), sub.closes.Load())
}

func TestOwningContextTeardown(t *testing.T) {
	h := newHarness(t, generating("m1"))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.ctrl.Attach(ctx))
	sub := h.src.sub(0)

	cancel()
	h.ctrl.Wait()

	assert.Equal(t, domain.StreamDetached, h.ctrl.State())
	assert.Equal(t, int32(1), sub.closes.Load())
}

func TestControllerPublishesLifecycleEvents(t *testing.T) {
	bus := eventbus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var seen []domain.EventType
	var failed domain.StreamFailedPayload
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		seen = append(seen, e.Type)
		if e.Type == domain.EventStreamFailed {
			_ = json.Unmarshal(e.Payload, &failed)
		}
	})

	src := &fakeSource{}
	c := NewController(generating("m1"), ControllerDeps{Source: src, Bus: bus, ChatID: "c1"})
	require.NoError(t, c.Attach(context.Background()))
	c.Dispatch(chunk("a"))
	src.sub(0).frames <- domain.Frame{Err: errors.New("reset")}

	deadline := time.After(2 * time.Second)
	for c.State() != domain.StreamError {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for error state")
		case <-time.After(time.Millisecond):
		}
	}
	c.Wait()

	assert.Equal(t, []domain.EventType{
		domain.EventStreamAttached,
		domain.EventStreamUpdated,
		domain.EventStreamFailed,
	}, seen)
	assert.Equal(t, domain.CodeConnection, failed.Code)
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smartbite/assistant/backend/internal/logger"
	"github.com/smartbite/assistant/backend/internal/model/chat"
	"github.com/smartbite/assistant/backend/internal/service/voice"
)

// Conversation is the server-side state of one open chat widget: transcript,
// turn scheduler, reply pipeline and optional voice capture.
type Conversation struct {
	session    chat.Session
	transcript *Transcript
	scheduler  *Scheduler
	replier    Replier
	fallback   string
	capture    *voice.Capture
	engine     voice.Engine
	log        *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	input  string
	closed bool
}

// conversationDeps bundles what the service injects into each widget.
type conversationDeps struct {
	greeting  string
	delay     Delay
	afterFunc AfterFunc
	replier   Replier
	fallback  string
	engine    voice.Engine
	log       *logger.Logger
	now       func() time.Time
}

func newConversation(session chat.Session, deps conversationDeps) *Conversation {
	if deps.now == nil {
		deps.now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())

	listeners := newListenerSet()
	c := &Conversation{
		session:    session,
		transcript: newTranscript(deps.greeting, listeners, deps.now),
		scheduler:  NewSchedulerWithClock(deps.delay, deps.afterFunc),
		replier:    deps.replier,
		fallback:   deps.fallback,
		engine:     deps.engine,
		log:        deps.log.With("session", session.ID),
		ctx:        ctx,
		cancel:     cancel,
	}

	c.capture = voice.NewCapture(c.engine, c.SetInput,
		voice.WithLogger(c.log),
		voice.WithStateHook(func(listening bool) {
			listeners.emit(Event{Kind: EventListening, Listening: listening})
		}),
	)
	return c
}

// Session returns the widget's identity.
func (c *Conversation) Session() chat.Session {
	return c.session
}

// Submit appends a user turn and schedules the assistant reply.
func (c *Conversation) Submit(text string) (chat.Message, error) {
	msg, err := c.transcript.AppendUserMessage(text)
	if err != nil {
		return chat.Message{}, err
	}

	c.mu.Lock()
	c.input = ""
	c.mu.Unlock()

	if err := c.scheduler.Schedule(func() { c.deliverReply(text) }); err != nil {
		// Only reachable when teardown raced the submit; the transcript is
		// closed by now so nothing else can be appended.
		c.log.Debug("reply not scheduled", "error", err)
		return msg, fmt.Errorf("schedule reply: %w", err)
	}
	return msg, nil
}

func (c *Conversation) deliverReply(userText string) {
	if c.ctx.Err() != nil {
		return
	}

	reply, err := c.replier.Reply(c.ctx, userText)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Warn("reply pipeline failed, using fallback", "error", err)
		reply = c.fallback
	}

	if _, err := c.transcript.AppendAssistantMessage(reply); err != nil {
		c.log.Debug("reply dropped", "error", err)
	}
}

// Messages lists the transcript in append order.
func (c *Conversation) Messages() []chat.Message {
	return c.transcript.List()
}

// Pending reports whether input is currently disabled.
func (c *Conversation) Pending() bool {
	return c.transcript.Pending()
}

// Input is the value waiting in the input box, e.g. a voice transcript.
func (c *Conversation) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the pending input value without submitting it.
func (c *Conversation) SetInput(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.input = text
	c.mu.Unlock()

	c.transcript.listeners.emit(Event{Kind: EventInput, Input: text})
}

// Voice exposes the capture adapter; IsAvailable is false without an engine.
func (c *Conversation) Voice() *voice.Capture {
	return c.capture
}

// FeedAudio forwards microphone audio to an engine that accepts streamed
// chunks.
func (c *Conversation) FeedAudio(chunk voice.Chunk) error {
	feeder, ok := c.engine.(interface{ Feed(voice.Chunk) error })
	if !ok {
		return voice.ErrVoiceUnavailable
	}
	return feeder.Feed(chunk)
}

// Subscribe registers a listener for widget events.
func (c *Conversation) Subscribe(l Listener) func() {
	return c.transcript.Subscribe(l)
}

// Done is closed once the widget has been torn down.
func (c *Conversation) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close tears the widget down: the pending reply is cancelled, voice capture
// stops and the transcript rejects further appends.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.transcript.Close()
	c.scheduler.Dispose()
	c.capture.Close()

	// Subscribers see the closed event before Done fires.
	c.transcript.listeners.emit(Event{Kind: EventClosed})
	c.cancel()
}

package voice

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/smartbite/assistant/backend/internal/logger"
)

var ErrVoiceUnavailable = errors.New("speech recognition is not available")

// Engine is the speech-to-text capability exposed by the host. Recognize
// runs one single-utterance session and returns its final transcript.
type Engine interface {
	Recognize(ctx context.Context) (string, error)
}

// Capture toggles voice capture for one widget. A successful session hands
// its transcript to onResult; failures silently end the session.
type Capture struct {
	engine   Engine
	onResult func(string)
	onState  func(bool)
	log      *logger.Logger

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
	gen       uint64
	closed    bool
	wg        sync.WaitGroup
}

// Option customises a Capture.
type Option func(*Capture)

// WithStateHook is called with the new listening value on every flip.
func WithStateHook(fn func(listening bool)) Option {
	return func(c *Capture) { c.onState = fn }
}

// WithLogger attaches a logger for swallowed recognition errors.
func WithLogger(log *logger.Logger) Option {
	return func(c *Capture) { c.log = log }
}

// NewCapture wires an engine (nil when the host has no recognizer) to the
// result sink.
func NewCapture(engine Engine, onResult func(string), opts ...Option) *Capture {
	c := &Capture{engine: engine, onResult: onResult}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAvailable reports whether the host exposes speech recognition.
func (c *Capture) IsAvailable() bool {
	return c != nil && c.engine != nil
}

// Listening reports whether a capture session is in progress.
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// StartListening begins one non-continuous capture session. Calling it while
// already listening is a no-op.
func (c *Capture) StartListening() error {
	if !c.IsAvailable() {
		return ErrVoiceUnavailable
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrVoiceUnavailable
	}
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.gen++
	gen := c.gen
	c.listening = true
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	c.notify(true)
	go c.run(ctx, gen)
	return nil
}

// StopListening cancels the session in progress, if any.
func (c *Capture) StopListening() {
	if c == nil {
		return
	}
	if c.finish(0) {
		c.notify(false)
	}
}

// Close stops any session and waits for its goroutine to exit.
func (c *Capture) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.StopListening()
	c.wg.Wait()
}

func (c *Capture) run(ctx context.Context, gen uint64) {
	defer c.wg.Done()

	text, err := c.engine.Recognize(ctx)
	text = strings.TrimSpace(text)

	if !c.finish(gen) {
		// stopped or superseded: drop whatever came back
		return
	}
	c.notify(false)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Debug("voice capture ended without result", "error", err)
		}
		return
	}
	if text == "" {
		return
	}
	if c.onResult != nil {
		c.onResult(text)
	}
}

// finish clears the listening state for session gen (0 means whichever is
// active) and reports whether it did.
func (c *Capture) finish(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.listening || (gen != 0 && gen != c.gen) {
		return false
	}
	c.listening = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return true
}

func (c *Capture) notify(listening bool) {
	if c.onState != nil {
		c.onState(listening)
	}
}

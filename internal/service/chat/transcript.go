package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartbite/assistant/backend/internal/model/chat"
)

var (
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrReplyPending     = errors.New("assistant reply is pending")
	ErrTranscriptClosed = errors.New("transcript is closed")
)

// EventKind tags widget notifications.
type EventKind string

const (
	EventMessage   EventKind = "message"
	EventPending   EventKind = "pending"
	EventInput     EventKind = "input"
	EventListening EventKind = "listening"
	EventClosed    EventKind = "closed"
)

// Event is pushed to subscribers whenever widget state changes. A message
// event doubles as the "scroll to latest" signal.
type Event struct {
	Kind      EventKind     `json:"kind"`
	Message   *chat.Message `json:"message,omitempty"`
	Pending   bool          `json:"pending"`
	Input     string        `json:"input,omitempty"`
	Listening bool          `json:"listening"`
}

// Listener receives events outside of any transcript lock.
type Listener func(Event)

// Transcript is the append-only message log of one widget. The first entry is
// always the assistant greeting.
type Transcript struct {
	mu        sync.Mutex
	messages  []chat.Message
	pending   bool
	closed    bool
	listeners *listenerSet
	now       func() time.Time
}

// NewTranscript seeds a transcript with the greeting.
func NewTranscript(greeting string) *Transcript {
	return newTranscript(greeting, newListenerSet(), time.Now)
}

func newTranscript(greeting string, listeners *listenerSet, now func() time.Time) *Transcript {
	t := &Transcript{
		messages:  make([]chat.Message, 0, 16),
		listeners: listeners,
		now:       now,
	}
	t.messages = append(t.messages, t.newMessage(chat.AuthorAssistant, greeting))
	return t
}

// AppendUserMessage records a user turn and enters the pending state. Blank
// text, a pending reply or a closed transcript leave everything untouched.
func (t *Transcript) AppendUserMessage(text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return chat.Message{}, ErrTranscriptClosed
	}
	if t.pending {
		t.mu.Unlock()
		return chat.Message{}, ErrReplyPending
	}
	msg := t.newMessage(chat.AuthorUser, text)
	t.messages = append(t.messages, msg)
	t.pending = true
	t.mu.Unlock()

	t.listeners.emit(Event{Kind: EventMessage, Message: &msg, Pending: true})
	t.listeners.emit(Event{Kind: EventPending, Pending: true})
	return msg, nil
}

// AppendAssistantMessage records an assistant turn and always clears the
// pending state, unless the transcript has been torn down.
func (t *Transcript) AppendAssistantMessage(text string) (chat.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return chat.Message{}, ErrTranscriptClosed
	}
	msg := t.newMessage(chat.AuthorAssistant, text)
	t.messages = append(t.messages, msg)
	wasPending := t.pending
	t.pending = false
	t.mu.Unlock()

	t.listeners.emit(Event{Kind: EventMessage, Message: &msg})
	if wasPending {
		t.listeners.emit(Event{Kind: EventPending, Pending: false})
	}
	return msg, nil
}

// List returns the messages in append order.
func (t *Transcript) List() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	copied := make([]chat.Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// Len is the number of messages appended so far, greeting included.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Pending reports whether a reply is scheduled but not yet delivered. While
// true the input surface is disabled.
func (t *Transcript) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Subscribe registers a listener and returns its cancel func.
func (t *Transcript) Subscribe(l Listener) func() {
	return t.listeners.add(l)
}

// Close rejects every later append. It reports whether this call closed it.
func (t *Transcript) Close() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.closed = true
	return true
}

// newMessage must be called with t.mu held (or before t is shared).
func (t *Transcript) newMessage(author chat.Author, text string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Seq:       len(t.messages) + 1,
		Author:    author,
		Text:      text,
		Timestamp: t.now().UTC(),
	}
}

type listenerSet struct {
	mu     sync.Mutex
	nextID int
	items  map[int]Listener
	order  []int
}

func newListenerSet() *listenerSet {
	return &listenerSet{items: make(map[int]Listener)}
}

func (s *listenerSet) add(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.items[id] = l
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.items, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *listenerSet) emit(ev Event) {
	s.mu.Lock()
	snapshot := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.items[id])
	}
	s.mu.Unlock()

	for _, l := range snapshot {
		l(ev)
	}
}

package chat

import (
	"time"

	"github.com/smartbite/assistant/backend/internal/model/chat"
	chatService "github.com/smartbite/assistant/backend/internal/service/chat"
)

// MessageView is a transcript entry as the widget renders it.
type MessageView struct {
	chat.Message
	DisplayTime string `json:"displayTime"`
}

// SessionView is the full widget state.
type SessionView struct {
	ID             string        `json:"id"`
	AssistantID    string        `json:"assistantId"`
	CreatedAt      time.Time     `json:"createdAt"`
	Messages       []MessageView `json:"messages"`
	Pending        bool          `json:"pending"`
	Input          string        `json:"input"`
	Listening      bool          `json:"listening"`
	VoiceAvailable bool          `json:"voiceAvailable"`
}

// NewMessageViews decorates messages with their display time.
func NewMessageViews(messages []chat.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, MessageView{Message: msg, DisplayTime: msg.DisplayTime()})
	}
	return views
}

// NewSessionView snapshots a conversation.
func NewSessionView(conv *chatService.Conversation) SessionView {
	session := conv.Session()
	return SessionView{
		ID:             session.ID,
		AssistantID:    session.AssistantID,
		CreatedAt:      session.CreatedAt,
		Messages:       NewMessageViews(conv.Messages()),
		Pending:        conv.Pending(),
		Input:          conv.Input(),
		Listening:      conv.Voice().Listening(),
		VoiceAvailable: conv.Voice().IsAvailable(),
	}
}

// EventView is the wire form of a widget event.
type EventView struct {
	Kind      chatService.EventKind `json:"kind"`
	Message   *MessageView          `json:"message,omitempty"`
	Pending   bool                  `json:"pending"`
	Input     string                `json:"input,omitempty"`
	Listening bool                  `json:"listening"`
}

// NewEventView converts a service event.
func NewEventView(ev chatService.Event) EventView {
	view := EventView{
		Kind:      ev.Kind,
		Pending:   ev.Pending,
		Input:     ev.Input,
		Listening: ev.Listening,
	}
	if ev.Message != nil {
		view.Message = &MessageView{Message: *ev.Message, DisplayTime: ev.Message.DisplayTime()}
	}
	return view
}

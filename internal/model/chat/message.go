package chat

import "time"

// Author identifies who produced a turn.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Message is one turn of the widget transcript. Seq is the append index and
// defines ordering; Timestamp is only for display.
type Message struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DisplayTime renders the timestamp the way the widget shows it.
func (m Message) DisplayTime() string {
	return m.Timestamp.Format("15:04")
}

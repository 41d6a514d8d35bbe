package chat

import "time"

// Session describes one opened chat widget.
type Session struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistantId"`
	CreatedAt   time.Time `json:"createdAt"`
}

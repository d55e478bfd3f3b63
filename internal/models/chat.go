package models

import (
	"time"
)

// ChatMessage is one entry of a conversation transcript.
type ChatMessage struct {
	ID           string          `json:"id"`
	Text         string          `json:"text"`
	IsBot        bool            `json:"is_bot"`
	Timestamp    time.Time       `json:"timestamp"`
	QuickReplies []string        `json:"quick_replies,omitempty"`
	// Todos carries the structured suggestions the text was rendered from.
	Todos []SuggestedTodo `json:"suggested_todos,omitempty"`
}

// Transcript is the whole conversation for one session. It is always
// written back wholesale.
type Transcript struct {
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// LastSuggestions returns the structured suggestions of the most recent bot
// message that has any, or nil.
func (t *Transcript) LastSuggestions() []SuggestedTodo {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		msg := t.Messages[i]
		if msg.IsBot && len(msg.Todos) > 0 {
			return msg.Todos
		}
	}
	return nil
}

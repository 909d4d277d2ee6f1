package model

import "time"

// Role tags who authored a chat message.
type Role string

// Chat roles.
const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one entry in a conversation transcript.
type ChatMessage struct {
	Timestamp            time.Time `json:"timestamp"`
	ID                   string    `json:"id"`
	Role                 Role      `json:"role"`
	Text                 string    `json:"text"`
	Image                string    `json:"image,omitempty"`
	ClarificationOptions []string  `json:"clarificationOptions,omitempty"`
	IsError              bool      `json:"isError,omitempty"`
}

// ChatSession is an ordered, append-only conversation.
type ChatSession struct {
	CreatedAt time.Time     `json:"createdAt"`
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
}

// LastMessage returns the most recent message, if any.
func (s ChatSession) LastMessage() (ChatMessage, bool) {
	if len(s.Messages) == 0 {
		return ChatMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

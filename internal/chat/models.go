package chat

import (
	"time"

	"github.com/suPer8Hu/brands-digger/internal/common"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const DefaultTitle = "New Chat"

// Message is one turn in a chat. Messages are never edited after creation.
type Message struct {
	ID        string   `json:"id"`
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	Names     []string `json:"names,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

func NewChat(now time.Time) Chat {
	ms := now.UnixMilli()
	return Chat{
		ID:        "chat_" + common.MustULID(now),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: ms,
		UpdatedAt: ms,
	}
}

// NewMessage builds a message stamped with now. An empty names list is dropped
// so that the persisted record omits the field.
func NewMessage(role Role, content string, names []string, now time.Time) Message {
	m := Message{
		ID:        "msg_" + common.MustULID(now),
		Role:      role,
		Content:   content,
		Timestamp: now.UnixMilli(),
	}
	if len(names) > 0 {
		m.Names = append([]string(nil), names...)
	}
	return m
}

func (c *Chat) IsEmpty() bool {
	return len(c.Messages) == 0
}

func (c *Chat) Append(m Message, now time.Time) {
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = now.UnixMilli()
}

// Clone returns a deep copy, so callers outside the owning lock can't alias message slices.
func (c Chat) Clone() Chat {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		if m.Names != nil {
			m.Names = append([]string(nil), m.Names...)
		}
		out.Messages[i] = m
	}
	return out
}

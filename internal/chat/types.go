package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one chat message. Messages are immutable once created: the
// store only appends, removes, or replaces the trailing assistant message
// when regenerating.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Session is one conversation thread with a stable identifier, owned by
// one user. The id is generated client-side when the first message is
// sent, so empty sessions are never persisted.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
	OwnerUserID string    `json:"owner_user_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSessionID generates a session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// clone returns a deep copy so callers cannot mutate store state.
func (s Session) clone() Session {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

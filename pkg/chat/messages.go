package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Pending marks the placeholder of a reply that has not received a chunk yet
	Pending   bool      `json:"pending,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	// RoleSystem marks session notices (context attached, filters changed).
	// Notices are shown in the transcript but never sent to the model.
	RoleSystem = "system"
)

// ThinkingContent is the placeholder content of an assistant reply awaiting its first chunk
const ThinkingContent = "thinking"

func newMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewUserMessage(content string) Message {
	return newMessage(RoleUser, strings.TrimSpace(content))
}

func NewAssistantMessage(content string) Message {
	return newMessage(RoleAssistant, content)
}

// NewThinkingMessage creates the assistant placeholder shown while a reply is pending
func NewThinkingMessage() Message {
	msg := newMessage(RoleAssistant, ThinkingContent)
	msg.Pending = true
	return msg
}

func NewSystemMessage(content string) Message {
	return newMessage(RoleSystem, content)
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

// IsThinking reports whether m is a pending assistant placeholder. A reply
// whose text happens to be ThinkingContent is not a placeholder.
func (m Message) IsThinking() bool {
	return m.Role == RoleAssistant && m.Pending
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

func (m Message) WithTimestamp(t time.Time) Message {
	m.Timestamp = t
	return m
}

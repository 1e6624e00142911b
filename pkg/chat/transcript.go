package chat

import "sync"

// Transcript is the ordered, mutable record of one conversation
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

func NewTranscript() *Transcript {
	return &Transcript{messages: make([]Message, 0)}
}

// Append adds msg to the end of the transcript
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// UpdateByID replaces the content of the message with the given ID and
// settles it if it was a placeholder. It reports false when no such message
// exists.
func (t *Transcript) UpdateByID(id, content string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages[i].Content = content
			t.messages[i].Pending = false
			return true
		}
	}
	return false
}

// RemoveByID deletes the message with the given ID
func (t *Transcript) RemoveByID(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the message with the given ID
func (t *Transcript) Get(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, msg := range t.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// Snapshot returns the settled messages in order, leaving out thinking placeholders
func (t *Transcript) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Message, 0, len(t.messages))
	for _, msg := range t.messages {
		if msg.IsThinking() {
			continue
		}
		result = append(result, msg)
	}
	return result
}

// Messages returns every message, placeholders included, for rendering
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Message, len(t.messages))
	copy(result, t.messages)
	return result
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Reset removes every message
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = make([]Message, 0)
}

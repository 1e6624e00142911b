package chat

// HistoryEntry is one role/content pair sent to a chat backend
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildHistory maps settled transcript messages to outbound history.
// Session notices and thinking placeholders are dropped.
func BuildHistory(messages []Message) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		if msg.IsThinking() {
			continue
		}
		switch msg.Role {
		case RoleUser, RoleAssistant:
			history = append(history, HistoryEntry{Role: msg.Role, Content: msg.Content})
		}
	}
	return history
}

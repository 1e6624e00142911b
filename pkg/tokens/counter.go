package tokens

import (
	"strings"
	"sync"

	"github.com/killallgit/pawnassist/pkg/logger"
	"github.com/pkoukk/tiktoken-go"
)

const cl100kBase = "cl100k_base"

// TokenCounter provides methods for counting tokens in text
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.RWMutex
}

// NewTokenCounter creates a token counter for the given model. When no
// encoding can be loaded (for example the BPE ranks cannot be fetched) the
// counter falls back to a character based estimate instead of failing.
func NewTokenCounter(modelName string) *TokenCounter {
	encodingName := getEncodingForModel(modelName)

	encoder, err := tiktoken.GetEncoding(encodingName)
	if err != nil && encodingName != cl100kBase {
		encoder, err = tiktoken.GetEncoding(cl100kBase)
	}
	if err != nil {
		logger.WithComponent("tokens").Warn("token encoder unavailable, using estimates",
			"model", modelName, "error", err)
		return &TokenCounter{}
	}

	return &TokenCounter{encoder: encoder}
}

// Exact reports whether counts come from a real encoder
func (tc *TokenCounter) Exact() bool {
	return tc != nil && tc.encoder != nil
}

// CountTokens counts the number of tokens in the given text
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil {
		return estimateTokens(text)
	}

	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.encoder == nil {
		return estimateTokens(text)
	}
	return len(tc.encoder.Encode(text, nil, nil))
}

// CountMessages counts tokens for a conversation with role-based messages
func (tc *TokenCounter) CountMessages(messages []Message) int {
	totalTokens := 0
	for _, msg := range messages {
		totalTokens += tc.countSingleMessage(msg)
	}

	// Every reply is primed with assistant
	return totalTokens + 3
}

func (tc *TokenCounter) countSingleMessage(msg Message) int {
	// 4 covers the per-message boundary markers
	return tc.CountTokens(msg.Role) + tc.CountTokens(msg.Content) + 4
}

// Message represents a chat message with role and content
type Message struct {
	Role    string
	Content string
}

func getEncodingForModel(modelName string) string {
	modelLower := strings.ToLower(modelName)

	switch {
	case strings.Contains(modelLower, "gpt-4"), strings.Contains(modelLower, "gpt-3.5"):
		return cl100kBase
	case strings.Contains(modelLower, "davinci"), strings.Contains(modelLower, "curie"):
		return "p50k_base"
	}

	// Works reasonably well for local models too
	return cl100kBase
}

// estimateTokens approximates a count as the larger of the word count and
// one token per four bytes
func estimateTokens(text string) int {
	wordEstimate := len(strings.Fields(text))
	charEstimate := len(text) / 4

	if wordEstimate > charEstimate {
		return wordEstimate
	}
	return charEstimate
}

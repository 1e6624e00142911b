package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeLLM is a langchaingo model with scripted replies. When a streaming
// function is supplied the reply is delivered in chunkSize-rune pieces.
type FakeLLM struct {
	mu           sync.Mutex
	responses    []string
	currentIndex int
	callCount    int
	lastPrompt   string
	lastMessages []llms.MessageContent
	errorOnCall  int // If > 0, return error on this call number
	errorMessage string
	chunkSize    int
}

// NewFakeLLM creates a new fake LLM with predefined responses
func NewFakeLLM(responses ...string) *FakeLLM {
	return &FakeLLM{
		responses: responses,
		chunkSize: 4,
	}
}

// Call implements llms.Model
func (f *FakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next(prompt)
}

func (f *FakeLLM) next(prompt string) (string, error) {
	f.callCount++
	f.lastPrompt = prompt

	if f.errorOnCall > 0 && f.callCount == f.errorOnCall {
		if f.errorMessage != "" {
			return "", errors.New(f.errorMessage)
		}
		return "", fmt.Errorf("fake error on call %d", f.callCount)
	}

	if len(f.responses) == 0 {
		return "", errors.New("no responses configured")
	}

	response := f.responses[f.currentIndex]
	f.currentIndex = (f.currentIndex + 1) % len(f.responses)
	return response, nil
}

// GenerateContent implements llms.Model
func (f *FakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var parts []string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				parts = append(parts, text.Text)
			}
		}
	}

	f.mu.Lock()
	f.lastMessages = messages
	response, err := f.next(strings.Join(parts, "\n"))
	chunkSize := f.chunkSize
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, piece := range splitRunes(response, chunkSize) {
			if err := opts.StreamingFunc(ctx, []byte(piece)); err != nil {
				return nil, err
			}
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: response}},
	}, nil
}

// SetChunkSize sets the number of runes per streamed piece. Zero disables
// streaming so the reply only appears in the returned choice.
func (f *FakeLLM) SetChunkSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkSize = size
}

// SetErrorOnCall configures the LLM to return an error on a specific call
func (f *FakeLLM) SetErrorOnCall(callNumber int, errorMessage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorOnCall = callNumber
	f.errorMessage = errorMessage
}

// GetCallCount returns the number of calls made
func (f *FakeLLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

// GetLastPrompt returns the text of the last call
func (f *FakeLLM) GetLastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt
}

// GetLastMessages returns the messages passed to the last GenerateContent
func (f *FakeLLM) GetLastMessages() []llms.MessageContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMessages
}

func splitRunes(s string, size int) []string {
	if size <= 0 {
		return nil
	}
	runes := []rune(s)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}

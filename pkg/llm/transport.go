// Package llm provides the streaming transports that carry one chat turn to
// a language model and deliver the reply as ordered text fragments.
package llm

import (
	"context"

	"github.com/killallgit/pawnassist/pkg/chat"
)

// Request is one outbound turn
type Request struct {
	Message        string              `json:"message"`
	History        []chat.HistoryEntry `json:"history"`
	ConversationID string              `json:"conversation_id,omitempty"`
}

// Chunk is one fragment of a streamed reply. A chunk carrying Err is the
// last value sent on its channel.
type Chunk struct {
	Content string
	Err     error
}

// Transport streams an assistant reply. The returned channel is closed when
// the stream ends; a close without an error chunk means success. Cancelling
// ctx stops the stream.
type Transport interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, req Request) (<-chan Chunk, error)

func (f TransportFunc) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	return f(ctx, req)
}

// send delivers a chunk unless ctx is done first
func send(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

package llm

import (
	"context"
	"fmt"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/logger"
	"github.com/tmc/langchaingo/llms"
)

// LangChainTransport streams replies from any langchaingo model
type LangChainTransport struct {
	model llms.Model
	opts  []llms.CallOption
}

// NewLangChainTransport wraps model. opts are applied to every call.
func NewLangChainTransport(model llms.Model, opts ...llms.CallOption) *LangChainTransport {
	return &LangChainTransport{model: model, opts: opts}
}

// Stream sends the history followed by the user message. Models that do not
// stream deliver their whole reply as a single chunk.
func (t *LangChainTransport) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	if t.model == nil {
		return nil, fmt.Errorf("langchain transport has no model")
	}

	messages := toMessageContent(req)
	chunks := make(chan Chunk, 100)

	go func() {
		defer close(chunks)

		streamed := 0
		streamingFunc := func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed++
			if !send(ctx, chunks, Chunk{Content: string(chunk)}) {
				return ctx.Err()
			}
			return nil
		}

		opts := append([]llms.CallOption{llms.WithStreamingFunc(streamingFunc)}, t.opts...)
		response, err := t.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			send(ctx, chunks, Chunk{Err: err})
			return
		}

		if streamed == 0 && response != nil && len(response.Choices) > 0 && response.Choices[0].Content != "" {
			send(ctx, chunks, Chunk{Content: response.Choices[0].Content})
		}

		logger.WithComponent("langchain").Debug("stream finished",
			"conversation", req.ConversationID, "chunks", streamed)
	}()

	return chunks, nil
}

func toMessageContent(req Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.History)+1)
	for _, entry := range req.History {
		messages = append(messages, llms.TextParts(messageType(entry.Role), entry.Content))
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Message))
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case chat.RoleSystem:
		return llms.ChatMessageTypeSystem
	case chat.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

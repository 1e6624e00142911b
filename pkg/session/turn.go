package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/events"
	"github.com/killallgit/pawnassist/pkg/llm"
	"github.com/killallgit/pawnassist/pkg/tokens"
)

// FailurePrefix starts the assistant message shown when a turn fails
const FailurePrefix = "ขออภัย ไม่สามารถติดต่อผู้ช่วย AI ได้ในขณะนี้"

// FailureMessage is the user-facing text for a failed turn
func FailureMessage(err error) string {
	if err == nil {
		return FailurePrefix
	}
	reason := strings.TrimSpace(err.Error())
	if reason == "" {
		return FailurePrefix
	}
	return FailurePrefix + ": " + reason
}

// Turn tracks one submitted message and its reply
type Turn struct {
	// UserMessage is the message appended for the submission
	UserMessage chat.Message
	// ReplyID identifies the assistant placeholder that receives the reply
	ReplyID string
	// PromptTokens is the size of the outbound prompt when a counter is set
	PromptTokens int

	done    chan struct{}
	err     error
	content string
}

// Done is closed when the turn has finished
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn finishes or ctx ends
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err is the turn's failure, valid after Done
func (t *Turn) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Content is the complete reply, valid after Done
func (t *Turn) Content() string {
	select {
	case <-t.done:
		return t.content
	default:
		return ""
	}
}

func (t *Turn) finish(content string, err error) {
	t.content = content
	t.err = err
	close(t.done)
}

// Submit starts a turn for input. It returns ErrBusy without touching the
// transcript while another turn is in flight. The reply streams in the
// background; cancelling ctx aborts it.
func (s *Session) Submit(ctx context.Context, input string) (*Turn, error) {
	user := chat.NewUserMessage(input)
	if user.IsEmpty() {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		s.log.Debug("submission dropped while busy")
		return nil, ErrBusy
	}

	// History reflects the transcript before this submission
	history, err := s.builder.History(s.contexts.List(), s.transcript.Snapshot())
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to build history: %w", err)
	}

	placeholder := chat.NewThinkingMessage()
	s.appendLocked(user)
	s.appendLocked(placeholder)

	turnCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.generation++
	s.cancel = cancel
	gen := s.generation
	conversationID := s.id
	log := s.log
	s.mu.Unlock()

	turn := &Turn{
		UserMessage: user,
		ReplyID:     placeholder.ID,
		done:        make(chan struct{}),
	}
	req := llm.Request{Message: user.Content, History: history, ConversationID: conversationID}
	if s.counter != nil {
		turn.PromptTokens = s.countPrompt(req)
	}

	log.Info("turn started", "contexts", s.contexts.Len(), "history", len(history), "prompt_tokens", turn.PromptTokens)
	s.record(log, conversationID, user)

	chunks, err := s.transport.Stream(turnCtx, req)
	if err != nil {
		s.fail(gen, turn, err)
		return turn, nil
	}

	go s.consume(turnCtx, gen, turn, chunks)
	return turn, nil
}

func (s *Session) countPrompt(req llm.Request) int {
	messages := make([]tokens.Message, 0, len(req.History)+1)
	for _, entry := range req.History {
		messages = append(messages, tokens.Message{Role: entry.Role, Content: entry.Content})
	}
	messages = append(messages, tokens.Message{Role: chat.RoleUser, Content: req.Message})
	return s.counter.CountMessages(messages)
}

// consume applies chunks in arrival order until the stream ends
func (s *Session) consume(ctx context.Context, gen uint64, turn *Turn, chunks <-chan llm.Chunk) {
	var content strings.Builder
	received := 0

	for chunk := range chunks {
		if chunk.Err != nil {
			s.fail(gen, turn, chunk.Err)
			return
		}
		if chunk.Content == "" {
			continue
		}
		content.WriteString(chunk.Content)
		received++
		if !s.apply(gen, turn.ReplyID, content.String()) {
			turn.finish(content.String(), ErrInterrupted)
			return
		}
	}

	if err := ctx.Err(); err != nil {
		s.fail(gen, turn, err)
		return
	}
	s.complete(gen, turn, content.String(), received)
}

// apply writes the accumulated reply; the first chunk replaces the
// placeholder sentinel
func (s *Session) apply(gen uint64, replyID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		return false
	}
	if s.transcript.UpdateByID(replyID, content) {
		msg, _ := s.transcript.Get(replyID)
		s.publishLocked(events.ChangeUpdated, msg)
	}
	return true
}

func (s *Session) complete(gen uint64, turn *Turn, content string, received int) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		turn.finish(content, ErrInterrupted)
		return
	}

	reply, ok := s.transcript.Get(turn.ReplyID)
	if received == 0 {
		// Nothing arrived, so there is no reply to keep
		s.transcript.RemoveByID(turn.ReplyID)
		s.publishLocked(events.ChangeRemoved, reply)
		ok = false
	}
	s.endTurnLocked()
	conversationID := s.id
	log := s.log
	s.mu.Unlock()

	log.Info("turn completed", "chunks", received, "length", len(content))
	if ok {
		s.record(log, conversationID, reply)
	}
	turn.finish(content, nil)
}

// fail replaces the placeholder or partial reply with one error message
func (s *Session) fail(gen uint64, turn *Turn, err error) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		turn.finish("", ErrInterrupted)
		return
	}

	if removed, ok := s.transcript.Get(turn.ReplyID); ok {
		s.transcript.RemoveByID(turn.ReplyID)
		s.publishLocked(events.ChangeRemoved, removed)
	}
	failure := chat.NewAssistantMessage(FailureMessage(err))
	s.appendLocked(failure)
	s.endTurnLocked()
	conversationID := s.id
	log := s.log
	s.mu.Unlock()

	log.Error("turn failed", "error", err)
	s.record(log, conversationID, failure)
	turn.finish("", err)
}

func (s *Session) endTurnLocked() {
	s.busy = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Package session drives one conversational assistant session: the
// transcript, the attached widget contexts, streamed turns and the
// dashboard notifications that keep contexts current.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/events"
	"github.com/killallgit/pawnassist/pkg/llm"
	"github.com/killallgit/pawnassist/pkg/logger"
	"github.com/killallgit/pawnassist/pkg/prompt"
	"github.com/killallgit/pawnassist/pkg/suggest"
	"github.com/killallgit/pawnassist/pkg/tokens"
	"github.com/killallgit/pawnassist/pkg/widget"
)

var (
	// ErrBusy is returned by Submit while a turn is in flight
	ErrBusy = errors.New("a reply is still being generated")
	// ErrEmptyInput is returned by Submit for blank input
	ErrEmptyInput = errors.New("message is empty")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("session is closed")
	// ErrInterrupted ends a turn cut short by Reset or Close
	ErrInterrupted = errors.New("turn interrupted")
)

// DefaultFilterSettleDelay is how long filter changes settle before the
// contexts are announced as refreshed
const DefaultFilterSettleDelay = 800 * time.Millisecond

const recordTimeout = 5 * time.Second

// Recorder archives finalized messages and context events
type Recorder interface {
	RecordMessage(ctx context.Context, conversationID string, msg chat.Message) error
	RecordContextEvent(ctx context.Context, conversationID, action, widgetID, name string) error
}

// Session owns one transcript and one set of attached contexts. All
// methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id          string
	transport   llm.Transport
	contexts    *widget.Store
	transcript  *chat.Transcript
	builder     *prompt.Builder
	engine      *suggest.Engine
	policy      widget.Policy
	recorder    Recorder
	counter     *tokens.TokenCounter
	settleDelay time.Duration
	settle      *debouncer

	bus          *events.Bus
	unsubscribes []func()

	busy       bool
	generation uint64
	cancel     context.CancelFunc
	closed     bool

	log *logger.Logger
}

// Option configures a Session
type Option func(*Session)

// WithSettings applies session configuration: instructions, serializer
// limits, suggestion cap and filter settle delay
func WithSettings(settings config.SessionConfig) Option {
	return func(s *Session) {
		s.builder = prompt.NewBuilder(settings)
		s.engine = suggest.NewEngine(settings.MaxSuggestions)
		s.settleDelay = settings.FilterSettleDelay
	}
}

// WithPolicy sets per-widget behavior
func WithPolicy(policy widget.Policy) Option {
	return func(s *Session) { s.policy = policy }
}

// WithRecorder archives the conversation. Recorder failures are logged only.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithTokenCounter reports prompt sizes on each turn
func WithTokenCounter(c *tokens.TokenCounter) Option {
	return func(s *Session) { s.counter = c }
}

// WithConversationID resumes an existing conversation identifier
func WithConversationID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithContextStore replaces the context store, e.g. one with a fixed clock
func WithContextStore(store *widget.Store) Option {
	return func(s *Session) { s.contexts = store }
}

// New creates a session streaming replies through transport
func New(transport llm.Transport, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		transport:   transport,
		contexts:    widget.NewStore(),
		transcript:  chat.NewTranscript(),
		builder:     prompt.NewBuilder(config.SessionConfig{}),
		engine:      suggest.NewEngine(suggest.DefaultMaxSuggestions),
		settleDelay: DefaultFilterSettleDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.settleDelay < 0 {
		s.settleDelay = 0
	}
	s.settle = newDebouncer(s.settleDelay, s.announceFilterChange)
	s.log = logger.WithComponent("session").With("conversation", s.id)
	return s
}

// ConversationID identifies this session to the transport and archive
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Busy reports whether a turn is in flight
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Transcript returns every message in order, placeholders included
func (s *Session) Transcript() []chat.Message {
	return s.transcript.Messages()
}

// Bind subscribes the session to widget and filter notifications and
// publishes transcript changes on bus
func (s *Session) Bind(bus *events.Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.bus = bus
	s.unsubscribes = append(s.unsubscribes,
		bus.Subscribe(events.TopicWidgetUpdated, func(e events.Event) {
			switch u := e.Payload.(type) {
			case events.WidgetUpdate:
				s.HandleWidgetUpdate(u)
			case *events.WidgetUpdate:
				if u != nil {
					s.HandleWidgetUpdate(*u)
				}
			}
		}),
		bus.Subscribe(events.TopicFilterChanged, func(events.Event) {
			s.HandleFilterChanged()
		}),
	)
}

// Reset cancels any in-flight turn, clears the transcript and contexts and
// starts a new conversation
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.interruptLocked()
	s.transcript.Reset()
	s.contexts.Reset()
	s.settle.Cancel()
	s.id = uuid.NewString()
	s.log = logger.WithComponent("session").With("conversation", s.id)
	s.publishLocked(events.ChangeReset, chat.Message{})
	s.log.Info("session reset")
}

// Close tears the session down. Late stream chunks and timers are ignored.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.interruptLocked()
	s.settle.Stop()
	for _, unsubscribe := range s.unsubscribes {
		unsubscribe()
	}
	s.unsubscribes = nil
	s.log.Debug("session closed")
	return nil
}

// interruptLocked invalidates the in-flight turn
func (s *Session) interruptLocked() {
	s.generation++
	s.busy = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// appendLocked adds a message and announces it
func (s *Session) appendLocked(msg chat.Message) {
	s.transcript.Append(msg)
	s.publishLocked(events.ChangeAppended, msg)
}

func (s *Session) publishLocked(kind string, msg chat.Message) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.TopicTranscript, events.TranscriptChange{
		ConversationID: s.id,
		Kind:           kind,
		MessageID:      msg.ID,
		Role:           msg.Role,
		Content:        msg.Content,
		Pending:        msg.Pending,
	}, "session")
}

// record archives messages; call without holding mu, with log captured
// under it
func (s *Session) record(log *logger.Logger, conversationID string, msgs ...chat.Message) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	for _, msg := range msgs {
		if err := s.recorder.RecordMessage(ctx, conversationID, msg); err != nil {
			log.Warn("failed to archive message", "message", msg.ID, "error", err)
		}
	}
}

func (s *Session) recordContext(log *logger.Logger, conversationID, action string, c widget.Context) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordContextEvent(ctx, conversationID, action, c.ID, c.DisplayName()); err != nil {
		log.Warn("failed to archive context event", "widget", c.ID, "error", err)
	}
}

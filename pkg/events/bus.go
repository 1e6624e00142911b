package events

import (
	"sync"
	"time"

	"github.com/killallgit/pawnassist/pkg/logger"
)

// Event represents a generic event in the system
type Event struct {
	Type      string
	Payload   any
	Source    string
	Timestamp time.Time
}

// Handler is a function that handles events
type Handler func(event Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus carries dashboard notifications to interested sessions. Asynchronous
// events are delivered in publish order by a single goroutine.
type Bus struct {
	handlers map[string][]subscription
	nextID   uint64
	mutex    sync.RWMutex
	log      *logger.Logger
	buffer   chan Event
	done     chan struct{}
	closed   sync.Once
	wg       sync.WaitGroup
}

// NewBus creates a bus and starts its delivery goroutine
func NewBus() *Bus {
	bus := &Bus{
		handlers: make(map[string][]subscription),
		log:      logger.WithComponent("event_bus"),
		buffer:   make(chan Event, 100),
		done:     make(chan struct{}),
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe adds a handler for a topic; "*" receives every event. The
// returned function removes exactly this handler and is safe to call twice.
func (b *Bus) Subscribe(topic string, handler Handler) (unsubscribe func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, handler: handler})
	b.log.Debug("Handler subscribed", "topic", topic)

	return func() { b.unsubscribe(topic, id) }
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subs := b.handlers[topic]
	for i, s := range subs {
		if s.id == id {
			b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
			b.log.Debug("Handler unsubscribed", "topic", topic)
			return
		}
	}
}

// Publish queues an event for asynchronous delivery. Events are dropped
// when the queue is full or the bus is closed.
func (b *Bus) Publish(topic string, payload any, source string) {
	event := newEvent(topic, payload, source)

	select {
	case <-b.done:
		return
	default:
	}

	select {
	case b.buffer <- event:
		b.log.Debug("Event published", "topic", topic, "source", source)
	default:
		b.log.Warn("Event buffer full, dropping event", "topic", topic, "source", source)
	}
}

// PublishSync delivers an event to all handlers before returning
func (b *Bus) PublishSync(topic string, payload any, source string) {
	b.deliverEvent(newEvent(topic, payload, source))
}

func newEvent(topic string, payload any, source string) Event {
	return Event{
		Type:      topic,
		Payload:   payload,
		Source:    source,
		Timestamp: time.Now(),
	}
}

func (b *Bus) processEvents() {
	defer b.wg.Done()
	for {
		select {
		case event := <-b.buffer:
			b.deliverEvent(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) deliverEvent(event Event) {
	b.mutex.RLock()
	subs := append([]subscription(nil), b.handlers[event.Type]...)
	subs = append(subs, b.handlers[TopicAll]...)
	b.mutex.RUnlock()

	for _, s := range subs {
		b.invoke(event, s.handler)
	}
}

func (b *Bus) invoke(event Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked", "topic", event.Type, "error", r)
		}
	}()
	h(event)
}

// Close stops asynchronous delivery. Queued events not yet delivered are
// discarded.
func (b *Bus) Close() {
	b.closed.Do(func() {
		close(b.done)
		b.wg.Wait()
	})
}

package widget

import (
	"errors"
	"sync"
	"time"
)

// ErrEmptyID is returned when attaching a context without a widget identifier
var ErrEmptyID = errors.New("widget context id cannot be empty")

// Context is a named snapshot of on-screen widget data attached to a chat session
type Context struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Data        any       `json:"data"`
	AttachedAt  time.Time `json:"attached_at"`
}

// DisplayName falls back to the identifier when no name was given
func (c Context) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Store holds the active contexts of one session in insertion order,
// with at most one entry per widget identifier.
type Store struct {
	mu    sync.RWMutex
	items []Context
	index map[string]int
	now   func() time.Time
}

// NewStore creates an empty context store
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates a store that timestamps entries with now
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		index: make(map[string]int),
		now:   now,
	}
}

// Attach adds c, or replaces the entry with the same ID in place.
// It reports whether an existing entry was replaced and returns the updated collection.
func (s *Store) Attach(c Context) (bool, []Context, error) {
	if c.ID == "" {
		return false, nil, ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.AttachedAt = s.now()
	if i, exists := s.index[c.ID]; exists {
		s.items[i] = c
		return true, s.snapshot(), nil
	}

	s.index[c.ID] = len(s.items)
	s.items = append(s.items, c)
	return false, s.snapshot(), nil
}

// Detach removes the entry with the given ID. Unknown IDs are a no-op.
func (s *Store) Detach(id string) (Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[id]
	if !exists {
		return Context{}, false
	}

	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindex()
	return removed, true
}

// Refresh updates the payload of an existing entry without changing its position.
// Empty name and description keep their current values.
func (s *Store) Refresh(c Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[c.ID]
	if !exists {
		return false
	}

	current := &s.items[i]
	if c.Name != "" {
		current.Name = c.Name
	}
	if c.Description != "" {
		current.Description = c.Description
	}
	current.Data = c.Data
	current.AttachedAt = s.now()
	return true
}

// List returns the active contexts in insertion order
func (s *Store) List() []Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Get returns the context with the given ID
func (s *Store) Get(id string) (Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, exists := s.index[id]
	if !exists {
		return Context{}, false
	}
	return s.items[i], true
}

func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.index[id]
	return exists
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IDs returns the active widget identifiers in insertion order
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.items))
	for i, c := range s.items {
		ids[i] = c.ID
	}
	return ids
}

// Names returns the display names of the active contexts in insertion order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.items))
	for i, c := range s.items {
		names[i] = c.DisplayName()
	}
	return names
}

// Reset removes every context
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = make(map[string]int)
}

func (s *Store) snapshot() []Context {
	out := make([]Context, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, c := range s.items {
		s.index[c.ID] = i
	}
}

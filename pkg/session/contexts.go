package session

import (
	"strings"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/events"
	"github.com/killallgit/pawnassist/pkg/store"
	"github.com/killallgit/pawnassist/pkg/widget"
)

// Notice prefixes
const (
	NoticeAttached        = "เพิ่ม Context: "
	NoticeReplaced        = "แทนที่ Context: "
	NoticeDetached        = "ลบ Context: "
	NoticeFilterRefreshed = "อัปเดตข้อมูล Context ตามตัวกรองใหม่: "
)

// Attach adds a widget context, replacing any context with the same ID, and
// announces it in the transcript. Missing names and descriptions are taken
// from the widget policy.
func (s *Session) Attach(c widget.Context) ([]widget.Context, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	c = s.policy.Describe(c)
	replaced, list, err := s.contexts.Attach(c)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	text, action := NoticeAttached, store.ActionAttach
	if replaced {
		text, action = NoticeReplaced, store.ActionReplace
	}
	notice := chat.NewSystemMessage(text + c.DisplayName())
	s.appendLocked(notice)
	conversationID, log := s.id, s.log
	log.Debug("context attached", "widget", c.ID, "replaced", replaced, "active", len(list))
	s.mu.Unlock()

	s.record(log, conversationID, notice)
	s.recordContext(log, conversationID, action, c)
	return list, nil
}

// Detach removes a context. Unknown IDs are ignored and produce no notice.
func (s *Session) Detach(id string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	removed, ok := s.contexts.Detach(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	notice := chat.NewSystemMessage(NoticeDetached + removed.DisplayName())
	s.appendLocked(notice)
	conversationID, log := s.id, s.log
	log.Debug("context detached", "widget", id)
	s.mu.Unlock()

	s.record(log, conversationID, notice)
	s.recordContext(log, conversationID, store.ActionDetach, removed)
	return true
}

// Contexts returns the active contexts in attach order
func (s *Session) Contexts() []widget.Context {
	return s.contexts.List()
}

// Suggestions returns questions for the active contexts, or general
// questions when none apply
func (s *Session) Suggestions() []string {
	if ids := s.contexts.IDs(); len(ids) > 0 {
		if questions := s.engine.Suggest(ids); len(questions) > 0 {
			return questions
		}
	}
	return s.engine.General()
}

// HandleWidgetUpdate silently refreshes an active context when the
// widget's policy allows automatic replacement. It reports whether the
// context changed.
func (s *Session) HandleWidgetUpdate(u events.WidgetUpdate) bool {
	s.mu.Lock()
	if s.closed || !s.policy.AutoReplace(u.WidgetID) {
		s.mu.Unlock()
		return false
	}

	c := widget.Context{ID: u.WidgetID, Name: u.Name, Description: u.Description, Data: u.Data}
	if !s.contexts.Refresh(c) {
		s.mu.Unlock()
		return false
	}
	refreshed, _ := s.contexts.Get(u.WidgetID)
	conversationID, log := s.id, s.log
	log.Debug("context refreshed", "widget", u.WidgetID)
	s.mu.Unlock()

	s.recordContext(log, conversationID, store.ActionRefresh, refreshed)
	return true
}

// HandleFilterChanged schedules a single refresh notice once filter
// changes have settled. Each call restarts the wait.
func (s *Session) HandleFilterChanged() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if !closed {
		s.settle.Trigger()
	}
}

func (s *Session) announceFilterChange() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	names := s.contexts.Names()
	if len(names) == 0 {
		s.mu.Unlock()
		return
	}
	notice := chat.NewSystemMessage(NoticeFilterRefreshed + strings.Join(names, ", "))
	s.appendLocked(notice)
	conversationID, log := s.id, s.log
	s.mu.Unlock()

	s.record(log, conversationID, notice)
}

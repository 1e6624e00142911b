// Package store archives finalized conversation turns and context events in
// a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/killallgit/pawnassist/pkg/chat"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT PRIMARY KEY,
    started_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    seq              INTEGER PRIMARY KEY AUTOINCREMENT,
    id               TEXT NOT NULL UNIQUE,
    conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    role             TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
    content          TEXT NOT NULL,
    created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS context_events (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    action           TEXT NOT NULL CHECK (action IN ('attach', 'replace', 'detach', 'refresh')),
    widget_id        TEXT NOT NULL,
    name             TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_context_events_conversation ON context_events(conversation_id);
`

// timeLayout is fixed width so stored text sorts chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Context event actions
const (
	ActionAttach  = "attach"
	ActionReplace = "replace"
	ActionDetach  = "detach"
	ActionRefresh = "refresh"
)

// Conversation summarizes one archived session
type Conversation struct {
	ID           string
	StartedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	Title        string
}

// ContextEvent is one archived attach, replace, detach or refresh
type ContextEvent struct {
	Action    string
	WidgetID  string
	Name      string
	CreatedAt time.Time
}

// Archive is a SQLite-backed conversation archive
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the archive at path
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}
	return &Archive{db: db, now: time.Now}, nil
}

// Close closes the database
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) touchConversation(ctx context.Context, tx *sql.Tx, conversationID string) error {
	now := a.now().UTC().Format(timeLayout)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, started_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		conversationID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting conversation: %w", err)
	}
	return nil
}

// RecordMessage stores a finalized message. Recording the same message ID
// again replaces its content.
func (a *Archive) RecordMessage(ctx context.Context, conversationID string, msg chat.Message) error {
	if msg.IsThinking() {
		return nil
	}

	return a.inTx(ctx, func(tx *sql.Tx) error {
		if err := a.touchConversation(ctx, tx, conversationID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET content = excluded.content`,
			msg.ID, conversationID, msg.Role, msg.Content, msg.Timestamp.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
		return nil
	})
}

// RecordContextEvent stores a context lifecycle event
func (a *Archive) RecordContextEvent(ctx context.Context, conversationID, action, widgetID, name string) error {
	return a.inTx(ctx, func(tx *sql.Tx) error {
		if err := a.touchConversation(ctx, tx, conversationID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO context_events (conversation_id, action, widget_id, name, created_at) VALUES (?, ?, ?, ?, ?)`,
			conversationID, action, widgetID, name, a.now().UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting context event: %w", err)
		}
		return nil
	})
}

// ListConversations returns archived conversations, most recent first. The
// title is the first user message.
func (a *Archive) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.id, c.started_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		       COALESCE((SELECT m.content FROM messages m
		                 WHERE m.conversation_id = c.id AND m.role = 'user'
		                 ORDER BY m.seq ASC LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC, c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var results []Conversation
	for rows.Next() {
		var c Conversation
		var startedAt, updatedAt string
		if err := rows.Scan(&c.ID, &startedAt, &updatedAt, &c.MessageCount, &c.Title); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		c.StartedAt, _ = time.Parse(timeLayout, startedAt)
		c.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		results = append(results, c)
	}
	return results, rows.Err()
}

// LoadTranscript returns the archived messages of a conversation in order
func (a *Archive) LoadTranscript(ctx context.Context, conversationID string) ([]chat.Message, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}
	defer rows.Close()

	var results []chat.Message
	for rows.Next() {
		var m chat.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Timestamp, _ = time.Parse(timeLayout, createdAt)
		results = append(results, m)
	}
	return results, rows.Err()
}

// ContextEvents returns the context events of a conversation in order
func (a *Archive) ContextEvents(ctx context.Context, conversationID string) ([]ContextEvent, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT action, widget_id, name, created_at FROM context_events WHERE conversation_id = ? ORDER BY id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading context events: %w", err)
	}
	defer rows.Close()

	var results []ContextEvent
	for rows.Next() {
		var e ContextEvent
		var createdAt string
		if err := rows.Scan(&e.Action, &e.WidgetID, &e.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning context event: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		results = append(results, e)
	}
	return results, rows.Err()
}

func (a *Archive) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Package events is the in-process notification channel between dashboard
// widgets and assistant sessions.
package events

// Topics
const (
	TopicAll = "*"

	// TopicWidgetUpdated carries a WidgetUpdate when a widget's data changes
	TopicWidgetUpdated = "widget.updated"
	// TopicFilterChanged carries a FilterChange when dashboard filters change
	TopicFilterChanged = "filter.changed"
	// TopicTranscript carries a TranscriptChange after every transcript mutation
	TopicTranscript = "transcript.changed"
)

// WidgetUpdate is fresh data published by a dashboard widget
type WidgetUpdate struct {
	WidgetID    string
	Name        string
	Description string
	Data        any
}

// FilterChange describes new dashboard filter values
type FilterChange struct {
	Filters map[string]string
}

// Transcript change kinds
const (
	ChangeAppended = "appended"
	ChangeUpdated  = "updated"
	ChangeRemoved  = "removed"
	ChangeReset    = "reset"
)

// TranscriptChange announces a transcript mutation for renderers
type TranscriptChange struct {
	ConversationID string
	Kind           string
	MessageID      string
	Role           string
	Content        string
	Pending        bool
}

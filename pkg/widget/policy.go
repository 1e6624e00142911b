package widget

import "github.com/killallgit/pawnassist/pkg/config"

// Policy holds per-widget settings from configuration
type Policy struct {
	widgets map[string]config.WidgetConfig
}

// NewPolicy indexes the configured widgets by ID
func NewPolicy(widgets []config.WidgetConfig) Policy {
	p := Policy{widgets: make(map[string]config.WidgetConfig, len(widgets))}
	for _, w := range widgets {
		p.widgets[w.ID] = w
	}
	return p
}

// AutoReplace reports whether data updates for id silently replace an active context
func (p Policy) AutoReplace(id string) bool {
	return p.widgets[id].AutoReplace
}

// Describe fills in a missing name or description from configuration
func (p Policy) Describe(c Context) Context {
	w, ok := p.widgets[c.ID]
	if !ok {
		return c
	}
	if c.Name == "" {
		c.Name = w.Name
	}
	if c.Description == "" {
		c.Description = w.Description
	}
	return c
}

// Package prompt builds the leading system entry of each outbound turn from
// the configured instructions and the attached widget contexts.
package prompt

import (
	"fmt"
	"strings"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/serialize"
	"github.com/killallgit/pawnassist/pkg/widget"
)

const (
	// SectionSeparator joins rendered contexts
	SectionSeparator = "\n\n---\n\n"

	// NoDescription stands in for a context without a description
	NoDescription = "ไม่มีคำอธิบาย"

	sectionTemplate = "ข้อมูล: {{.name}}\nคำอธิบาย: {{.description}}\nข้อมูลดิบ:\n{{.data}}"

	contextTemplate = "{{.instruction}}\n\n" +
		"ข้อมูลจากแดชบอร์ดที่ผู้ใช้แนบมา:\n\n{{.contexts}}\n\n" +
		"ใช้ข้อมูลข้างต้นในการตอบคำถามเสมอ ห้ามขอโทษหรือตอบว่าไม่มีข้อมูล หากข้อมูลไม่ครบให้วิเคราะห์จากส่วนที่มี"
)

// Builder renders system entries. A Builder is safe for concurrent use.
type Builder struct {
	systemPrompt  string
	contextPrompt string
	serializer    *serialize.Serializer
	section       *PromptTemplate
	withContexts  *PromptTemplate
}

// NewBuilder creates a builder from session settings. Empty instructions
// fall back to the defaults.
func NewBuilder(settings config.SessionConfig) *Builder {
	b := &Builder{
		systemPrompt:  settings.SystemPrompt,
		contextPrompt: settings.ContextPrompt,
		serializer:    serialize.New(settings.MaxStringLength),
		section:       NewPromptTemplate(sectionTemplate, []string{"name", "description", "data"}),
	}
	if b.systemPrompt == "" {
		b.systemPrompt = config.DefaultSystemPrompt
	}
	if b.contextPrompt == "" {
		b.contextPrompt = config.DefaultContextPrompt
	}
	b.withContexts = NewPromptTemplate(contextTemplate, []string{"instruction", "contexts"}).
		WithPartialVariables(map[string]any{"instruction": b.contextPrompt})
	return b
}

// Instruction returns the instruction used with or without contexts
func (b *Builder) Instruction(hasContexts bool) string {
	if hasContexts {
		return b.contextPrompt
	}
	return b.systemPrompt
}

// RenderContext renders one context as a labelled section
func (b *Builder) RenderContext(c widget.Context) (string, error) {
	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = NoDescription
	}
	return b.section.Format(map[string]any{
		"name":        c.DisplayName(),
		"description": description,
		"data":        b.serializer.Serialize(c.Data),
	})
}

// SystemEntry builds the system entry that leads the outbound history
func (b *Builder) SystemEntry(contexts []widget.Context) (chat.HistoryEntry, error) {
	if len(contexts) == 0 {
		return chat.HistoryEntry{Role: chat.RoleSystem, Content: b.systemPrompt}, nil
	}

	sections := make([]string, 0, len(contexts))
	for _, c := range contexts {
		section, err := b.RenderContext(c)
		if err != nil {
			return chat.HistoryEntry{}, fmt.Errorf("failed to render context %s: %w", c.ID, err)
		}
		sections = append(sections, section)
	}

	content, err := b.withContexts.Format(map[string]any{
		"contexts": strings.Join(sections, SectionSeparator),
	})
	if err != nil {
		return chat.HistoryEntry{}, fmt.Errorf("failed to render system prompt: %w", err)
	}
	return chat.HistoryEntry{Role: chat.RoleSystem, Content: content}, nil
}

// History prepends the system entry to the settled transcript
func (b *Builder) History(contexts []widget.Context, transcript []chat.Message) ([]chat.HistoryEntry, error) {
	system, err := b.SystemEntry(contexts)
	if err != nil {
		return nil, err
	}
	return append([]chat.HistoryEntry{system}, chat.BuildHistory(transcript)...), nil
}

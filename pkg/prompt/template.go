package prompt

import (
	"fmt"
	"maps"

	"github.com/tmc/langchaingo/prompts"
)

// PromptTemplate wraps langchaingo's PromptTemplate with partial variables
// and required-variable checks
type PromptTemplate struct {
	template         prompts.PromptTemplate
	partialVariables map[string]any
}

// NewPromptTemplate creates a Go-template prompt over inputVars
func NewPromptTemplate(template string, inputVars []string) *PromptTemplate {
	return &PromptTemplate{
		template:         prompts.NewPromptTemplate(template, inputVars),
		partialVariables: make(map[string]any),
	}
}

// Format renders the template with values merged over the partials
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	merged := maps.Clone(p.partialVariables)
	maps.Copy(merged, values)

	for _, name := range p.template.InputVariables {
		if _, ok := merged[name]; !ok {
			return "", fmt.Errorf("missing required variable: %s", name)
		}
	}

	return p.template.Format(merged)
}

// WithPartialVariables returns a copy with some variables pre-filled
func (p *PromptTemplate) WithPartialVariables(partials map[string]any) *PromptTemplate {
	merged := maps.Clone(p.partialVariables)
	maps.Copy(merged, partials)
	return &PromptTemplate{template: p.template, partialVariables: merged}
}

// InputVariables returns the declared variable names
func (p *PromptTemplate) InputVariables() []string {
	return p.template.InputVariables
}

package suggest

// DefaultMaxSuggestions caps the suggestion list
const DefaultMaxSuggestions = 10

// Engine derives suggested questions from the set of attached widget identifiers.
// It is stateless and safe for concurrent use.
type Engine struct {
	max int
}

// NewEngine creates an engine returning at most max suggestions. Values
// outside 1..DefaultMaxSuggestions fall back to DefaultMaxSuggestions.
func NewEngine(max int) *Engine {
	if max <= 0 || max > DefaultMaxSuggestions {
		max = DefaultMaxSuggestions
	}
	return &Engine{max: max}
}

// Suggest returns ranked, deduplicated questions for the attached widget IDs.
// An empty set yields an empty list; callers show General() instead.
func (e *Engine) Suggest(widgetIDs []string) []string {
	if len(widgetIDs) == 0 {
		return []string{}
	}
	return e.limit(rank(widgetIDs))
}

// rank returns every matching question in rule order, deduplicated
func rank(widgetIDs []string) []string {

	active := make(map[string]bool, len(widgetIDs))
	for _, id := range widgetIDs {
		active[id] = true
	}

	var candidates []string
	for _, r := range widgetRules {
		if active[r.widgetID] {
			candidates = append(candidates, r.questions...)
		}
	}

	if len(active) > 1 {
		for _, p := range pairRules {
			if active[p.first] && active[p.second] {
				candidates = append(candidates, p.questions...)
			}
		}
		candidates = append(candidates, overviewQuestions...)
	}

	return dedupe(candidates)
}

// General returns the suggestions shown when no context is attached
func (e *Engine) General() []string {
	return e.limit(append([]string(nil), generalQuestions...))
}

func (e *Engine) limit(questions []string) []string {
	if len(questions) > e.max {
		return questions[:e.max]
	}
	return questions
}

func dedupe(questions []string) []string {
	seen := make(map[string]bool, len(questions))
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

package intent

import "strings"

// Intent names the canned response category a message was routed to.
type Intent string

const (
	Menu        Intent = "menu"
	Reservation Intent = "reservation"
	Dietary     Intent = "dietary"
	Hours       Intent = "hours"
	Ordering    Intent = "ordering"
	Fallback    Intent = "fallback"
)

// Rule pairs a keyword set with the reply sent when any keyword matches.
type Rule struct {
	Intent   Intent   `json:"intent"`
	Keywords []string `json:"keywords"`
	Response string   `json:"response"`
}

// Match reports the first keyword of r contained in normalized, which must
// already be lower-cased.
func (r Rule) Match(normalized string) (string, bool) {
	for _, word := range r.Keywords {
		if word == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(word)) {
			return word, true
		}
	}
	return "", false
}

// Decision is the outcome of classifying one user message.
type Decision struct {
	Intent   Intent `json:"intent"`
	Keyword  string `json:"keyword,omitempty"`
	Response string `json:"response"`
}

// Classifier evaluates an ordered rule table, first match wins.
type Classifier struct {
	rules    []Rule
	fallback Rule
}

// NewClassifier copies the table so later edits by the caller do not leak in.
func NewClassifier(rules []Rule, fallbackResponse string) *Classifier {
	copied := make([]Rule, len(rules))
	for i, rule := range rules {
		rule.Keywords = append([]string(nil), rule.Keywords...)
		copied[i] = rule
	}
	return &Classifier{
		rules:    copied,
		fallback: Rule{Intent: Fallback, Response: fallbackResponse},
	}
}

// Classify routes text to a canned response. There is no scoring and no
// combination of rules: the earliest rule with a substring hit wins.
func (c *Classifier) Classify(text string) Decision {
	normalized := strings.ToLower(text)
	if strings.TrimSpace(normalized) != "" {
		for _, rule := range c.rules {
			if keyword, ok := rule.Match(normalized); ok {
				return Decision{Intent: rule.Intent, Keyword: keyword, Response: rule.Response}
			}
		}
	}
	return Decision{Intent: c.fallback.Intent, Response: c.fallback.Response}
}

// Rules returns the ordered table followed by the fallback rule.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, 0, len(c.rules)+1)
	for _, rule := range c.rules {
		rule.Keywords = append([]string(nil), rule.Keywords...)
		out = append(out, rule)
	}
	return append(out, c.fallback)
}

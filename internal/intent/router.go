// Package intent classifies a user query into the tool that should answer it.
package intent

import (
	"strings"

	"github.com/hyperjump/docagent/internal/models"
)

// Rule maps a query to an intent when every keyword occurs in the lowercased query.
type Rule struct {
	Keywords []string
	Intent   models.Intent
}

// Matches reports whether all keywords are substrings of the lowercased query.
func (r Rule) Matches(lowered string) bool {
	for _, kw := range r.Keywords {
		if !strings.Contains(lowered, kw) {
			return false
		}
	}
	return len(r.Keywords) > 0
}

// DefaultRules are evaluated in order; the first match wins.
var DefaultRules = []Rule{
	{Keywords: []string{"summarize"}, Intent: models.IntentSummarize},
	{Keywords: []string{"hr", "action"}, Intent: models.IntentExtractHRActions},
}

// Router applies an ordered rule table and falls back to general QA.
type Router struct {
	rules    []Rule
	fallback models.Intent
}

// NewRouter returns a router using DefaultRules.
func NewRouter() *Router {
	return &Router{rules: DefaultRules, fallback: models.IntentGeneralQA}
}

// Classify returns the intent of the first matching rule, or general QA.
// Matching is case-insensitive substring matching, so "hr" also matches inside
// words such as "three".
func (r *Router) Classify(query string) models.Intent {
	lowered := strings.ToLower(query)
	for _, rule := range r.rules {
		if rule.Matches(lowered) {
			return rule.Intent
		}
	}
	return r.fallback
}

var defaultRouter = NewRouter()

// Classify classifies query with the default rules.
func Classify(query string) models.Intent {
	return defaultRouter.Classify(query)
}

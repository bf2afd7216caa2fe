package models

import (
	"fmt"
	"strings"
	"time"
)

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentSummarize        Intent = "summarize"
	IntentExtractHRActions Intent = "extract_hr"
	IntentGeneralQA        Intent = "general"
)

// Intents lists every intent in router priority order.
var Intents = []Intent{IntentSummarize, IntentExtractHRActions, IntentGeneralQA}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

func (i Intent) String() string { return string(i) }

// Query is a single user question. It is never persisted.
type Query struct {
	Text string `json:"query"`
	TopK int    `json:"top_k,omitempty"`
}

// Validate rejects blank queries and negative k. Text is left untouched.
// A zero TopK means "use the configured default".
func (q *Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrConfig)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrConfig, q.TopK)
	}
	return nil
}

// Answer is the generated text, or an explicit absence when OK is false.
type Answer struct {
	Text string `json:"text,omitempty"`
	OK   bool   `json:"ok"`
}

// NoAnswer is the absence-of-answer value.
var NoAnswer = Answer{}

// AskResult is everything one query produced.
type AskResult struct {
	RunID      string        `json:"run_id"`
	Query      string        `json:"query"`
	Collection string        `json:"collection"`
	Intent     Intent        `json:"intent"`
	Chunks     []string      `json:"chunks"`
	Answer     Answer        `json:"answer"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// IngestResult reports what an ingest call did.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
	Inserted   int    `json:"inserted"`
}

// Skipped reports whether the collection was already populated.
func (r *IngestResult) Skipped() bool {
	return r.Chunks > 0 && r.Inserted == 0
}

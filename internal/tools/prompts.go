package tools

import (
	"strings"

	"github.com/hyperjump/docagent/internal/models"
)

const (
	summarizeTemplate = "Summarize the following text:\n\n{context}\n\nSummary:"
	hrActionsTemplate = "From the following text, extract action items relevant to the HR department:\n\n{context}\n\nItems:"
	generalQATemplate = "\nUsing the following context, answer the question. If the answer is not in the context,\n" +
		"say you don't know.\n\nContext:\n{context}\n\nQuestion: {query}\n\nAnswer:\n"
)

// BuildPrompt renders the prompt for intent. Only general QA includes the query.
// Unknown intents are treated as general QA.
func BuildPrompt(intent models.Intent, contextText, query string) string {
	switch intent {
	case models.IntentSummarize:
		return strings.Replace(summarizeTemplate, "{context}", contextText, 1)
	case models.IntentExtractHRActions:
		return strings.Replace(hrActionsTemplate, "{context}", contextText, 1)
	default:
		// placeholders are substituted in one pass so a context containing
		// "{query}" is not expanded
		return strings.NewReplacer("{context}", contextText, "{query}", query).Replace(generalQATemplate)
	}
}

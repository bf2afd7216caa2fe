// Package llm talks to remote text-generation services.
package llm

import "context"

// Generator completes a prompt. Implementations return the generated text with
// surrounding whitespace removed, or an error wrapping models.ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

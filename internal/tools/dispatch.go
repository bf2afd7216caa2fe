// Package tools runs the generation tool selected for a query's intent.
package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docagent/internal/llm"
	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/pkg/utils"
)

// Dispatcher renders the intent's prompt and asks the generator for an answer.
type Dispatcher struct {
	gen    llm.Generator
	logger *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used to report generation failures.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher returns a dispatcher backed by gen.
func NewDispatcher(gen llm.Generator, opts ...Option) *Dispatcher {
	d := &Dispatcher{gen: gen}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = utils.OrNop(d.logger)
	return d
}

// Dispatch returns the generator's answer for intent. A generation failure is
// logged and reported as models.NoAnswer rather than returned.
func (d *Dispatcher) Dispatch(ctx context.Context, intent models.Intent, contextText, query string) models.Answer {
	prompt := BuildPrompt(intent, contextText, query)
	start := time.Now()
	text, err := d.gen.Generate(ctx, prompt)
	if err != nil {
		d.logger.Warn("generation failed",
			zap.String("intent", intent.String()),
			zap.String("model", d.gen.ModelName()),
			zap.Error(err))
		return models.NoAnswer
	}
	d.logger.Debug("tool answered",
		zap.String("intent", intent.String()),
		zap.Int("answer_bytes", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return models.Answer{Text: text, OK: true}
}

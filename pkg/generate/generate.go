// Package generate sends a rendered meta-prompt to a hosted text model and
// returns the model's answer.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultGeminiModel is used when no model is configured for the gemini
// provider.
const DefaultGeminiModel = "gemini-2.5-flash"

var (
	ErrNoAPIKey = errors.New("no api key configured")
	ErrEmpty    = errors.New("model returned no text")
)

// Generator produces text for prompt using a single credential. There is no
// retry and no fallback to other keys.
type Generator interface {
	Generate(ctx context.Context, prompt, apiKey string) (string, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt, apiKey string) (string, error)

func (f Func) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	return f(ctx, prompt, apiKey)
}

// New returns the backend for provider ("gemini" or "openai"). An empty
// model selects the provider default.
func New(provider, model string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "gemini":
		if model == "" {
			model = DefaultGeminiModel
		}
		return &Gemini{Model: model}, nil
	case "openai":
		if model == "" {
			model = DefaultOpenAIModel
		}
		return &OpenAI{Model: model}, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", provider)
	}
}

type timeoutGenerator struct {
	next Generator
	d    time.Duration
}

// WithTimeout bounds every call to next by d. A zero d returns next
// unchanged.
func WithTimeout(next Generator, d time.Duration) Generator {
	if d <= 0 {
		return next
	}
	return timeoutGenerator{next: next, d: d}
}

func (g timeoutGenerator) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.d)
	defer cancel()
	return g.next.Generate(ctx, prompt, apiKey)
}

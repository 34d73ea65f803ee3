// Package llm wraps language-model backends behind a single-prompt Generator
// and builds the intent oracle and the body improver on top of it.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/kokistudios/mailvox/internal/intent"
)

// Options tune one generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the backend to constrain output to a JSON object.
	JSON bool
}

// Generator completes a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Config selects a backend.
type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
}

// Backend is what New hands the assistant: an oracle for intents and, when a
// model is available, an improver for dictated bodies.
type Backend struct {
	Oracle   intent.Oracle
	Improver *Improver
}

// New builds the backend for cfg.Provider: "ollama" (default), "genai", or
// "keywords" for the offline rule table without any model.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Provider {
	case "", "ollama":
		gen, err := NewOllama(cfg.Model, cfg.BaseURL)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Oracle: &TextOracle{Gen: gen}, Improver: NewImprover(gen)}, nil
	case "genai":
		envName := cfg.APIKeyEnv
		if envName == "" {
			envName = "GEMINI_API_KEY"
		}
		gen, err := NewGenAI(ctx, os.Getenv(envName), cfg.Model)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Oracle: &TextOracle{Gen: gen}, Improver: NewImprover(gen)}, nil
	case "keywords":
		return Backend{Oracle: KeywordOracle{}, Improver: NewImprover(nil)}, nil
	default:
		return Backend{}, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// TextOracle classifies utterances by prompting a Generator for JSON.
type TextOracle struct {
	Gen Generator
}

func (o *TextOracle) Infer(ctx context.Context, utterance string) (intent.Payload, error) {
	out, err := o.Gen.Generate(ctx, intent.Instruction(utterance), Options{
		Temperature: 0,
		MaxTokens:   150,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("intent generation: %w", err)
	}
	return intent.Raw(out), nil
}

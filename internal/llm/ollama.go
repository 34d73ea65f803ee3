package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaModel = "phi3:mini"

// Ollama generates through a local ollama server.
type Ollama struct {
	text llms.Model
	json llms.Model
}

// NewOllama connects to baseURL (empty means the ollama default) and uses model.
func NewOllama(model, baseURL string) (*Ollama, error) {
	if model == "" {
		model = defaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}
	text, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	structured, err := ollama.New(append(opts, ollama.WithFormat("json"))...)
	if err != nil {
		return nil, fmt.Errorf("creating ollama json client: %w", err)
	}
	return &Ollama{text: text, json: structured}, nil
}

func (o *Ollama) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	model := o.text
	if opts.JSON {
		model = o.json
	}
	call := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		call = append(call, llms.WithMaxTokens(opts.MaxTokens))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, model, prompt, call...)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out, nil
}

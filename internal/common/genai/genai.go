// Package genai holds the text-generation and embedding clients used by the
// pipeline stages.
package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contract-qa/internal/common/config"
)

var (
	ErrLLMTimeout          = errors.New("LLM_TIMEOUT")
	ErrLLMGenerationFailed = errors.New("LLM_GENERATION_FAILED")
	ErrEmbeddingFailed     = errors.New("EMBEDDING_FAILED")
)

// Generator is the synchronous text-generation service: one prompt, one reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into dense vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// NewGenerator picks the client for cfg.Provider.
func NewGenerator(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case "genai":
		return NewHTTPClient(HTTPConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.TimeoutDuration(),
			MaxRetries:  cfg.MaxRetries,
		}), nil
	case "openai", "groq":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.TimeoutDuration(),
			MaxRetries:  cfg.MaxRetries,
		}), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// NewRemoteEmbedder returns the service-backed embedder for cfg, or nil when
// the provider runs in-process.
func NewRemoteEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	timeout := config.GetDuration(cfg.Timeout)
	switch cfg.Provider {
	case "tfidf":
		return nil, nil
	case "genai":
		return NewHTTPClient(HTTPConfig{BaseURL: cfg.BaseURL, EmbeddingModel: cfg.Model, Timeout: timeout}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, EmbeddingModel: cfg.Model, Timeout: timeout}), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

// WithTimeout bounds a single call. A zero timeout leaves ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

package ai

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (OpenAI-compatible, Ollama, Gemini) implement this interface.
// An empty string with a nil error means the provider returned no completion.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	DefaultModel       = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.2"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultMaxTokens   = 1024
)

// DefaultModelFor returns the model used when none is configured.
func DefaultModelFor(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOllama:
		return DefaultOllamaModel
	case ProviderGemini:
		return DefaultGeminiModel
	default:
		return DefaultModel
	}
}

// GeneratorConfig selects and configures a TextGenerator.
type GeneratorConfig struct {
	Provider  string
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

// NewGenerator builds the TextGenerator for cfg.Provider (default openai).
func NewGenerator(cfg GeneratorConfig) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModelFor(provider)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	switch provider {
	case ProviderOpenAI:
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, model, maxTokens), nil
	case ProviderOllama:
		return NewOllamaGenerator(NewOllamaClient(cfg.BaseURL), model, maxTokens), nil
	case ProviderGemini:
		return NewGeminiGenerator(NewGeminiClient(cfg.APIKey), model, maxTokens), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}

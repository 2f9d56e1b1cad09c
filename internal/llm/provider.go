package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhosigiri/FeedbackAI/internal/config"
)

// ErrNotConfigured means no language model provider is available
var ErrNotConfigured = errors.New("no language model provider configured")

// Request is one completion call
type Request struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON object when it supports a JSON mode
	JSON bool
}

// Provider is a single-call completion backend
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Settings carries the generation parameters shared by every provider
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewProvider builds the provider selected by configuration
func NewProvider(cfg *config.Config) (Provider, error) {
	settings := Settings{
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}

	name := cfg.ResolvedLLMProvider()
	if name != "heuristic" && !cfg.HasLLMCredentials() {
		return nil, fmt.Errorf("%w: %s is missing credentials", ErrNotConfigured, name)
	}

	switch name {
	case "openai":
		return NewOpenAIProvider("openai", cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, withModel(settings, "gpt-4o-mini"), true), nil
	case "nemotron":
		return NewOpenAIProvider("nemotron", cfg.NemotronAPIKey, cfg.NemotronBaseURL, withModel(settings, "mistralai/mistral-nemotron"), false), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.AnthropicAPIKey, withModel(settings, "claude-sonnet-4-20250514")), nil
	case "gemini":
		provider, err := NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, withModel(settings, "gemini-2.5-flash"))
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "bedrock":
		provider, err := NewBedrockProvider(context.Background(), cfg.BedrockRegion, withModel(settings, "anthropic.claude-3-5-sonnet-20241022-v2:0"))
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "ollama":
		provider, err := NewOllamaProvider(cfg.OllamaBaseURL, withModel(settings, "llama3"))
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "heuristic":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", name)
	}
}

func withModel(s Settings, fallback string) Settings {
	if s.Model == "" {
		s.Model = fallback
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 900
	}
	return s
}

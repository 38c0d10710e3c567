package llm

import (
	"context"
	"fmt"

	"github.com/mfateev/toolchat/internal/models"
)

// Provider names accepted by NewProvider.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// NewProvider creates the provider named by cfg.Provider. An empty name
// selects Ollama.
func NewProvider(ctx context.Context, cfg models.ModelConfig) (Provider, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s (supported: ollama, openai, anthropic, gemini)", cfg.Provider)
	}
}

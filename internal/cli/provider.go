package cli

import (
	"strings"

	"github.com/mfateev/toolchat/internal/llm"
)

// DetectProvider returns the provider name inferred from a model name.
// GPT and o-series names map to OpenAI, claude- to Anthropic, gemini- to
// Gemini. Anything else is assumed to be served by Ollama.
func DetectProvider(model string) string {
	m := strings.ToLower(model)

	switch {
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "chatgpt-"):
		return llm.ProviderOpenAI
	case strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return llm.ProviderOpenAI
	case strings.HasPrefix(m, "claude-"):
		return llm.ProviderAnthropic
	case strings.HasPrefix(m, "gemini-"):
		return llm.ProviderGemini
	}
	return llm.ProviderOllama
}

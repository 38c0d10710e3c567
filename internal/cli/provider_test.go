package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model    string
		expected string
	}{
		{"gpt-4o-mini", "openai"},
		{"GPT-4o", "openai"},
		{"o1-mini", "openai"},
		{"o3-mini", "openai"},
		{"chatgpt-4o-latest", "openai"},

		{"claude-3-5-sonnet-latest", "anthropic"},
		{"Claude-3-opus", "anthropic"},

		{"gemini-1.5-pro", "gemini"},

		// Local names fall back to Ollama
		{"mistral:instruct", "ollama"},
		{"llama3.1", "ollama"},
		{"", "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectProvider(tt.model))
		})
	}
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOpenAIChatModel(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"gpt-4o", true},
		{"gpt-4o-mini", true},
		{"gpt-4.1", true},
		{"gpt-5", true},
		{"o3-mini", true},
		{"chatgpt-4o-latest", true},

		{"text-embedding-3-small", false},
		{"dall-e-3", false},
		{"whisper-1", false},
		{"gpt-4o-mini-tts", false},
		{"gpt-4o-realtime-preview", false},
		{"gpt-3.5-turbo-instruct", false},
		{"gpt-image-1", false},
		{"ft:gpt-4o-mini:org::abc", false},

		{"gpt-4o-2024-05-13", false},
		{"gpt-4-0613", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, isOpenAIChatModel(tt.id))
		})
	}
}

func TestBuildOpenAIInput(t *testing.T) {
	items := buildOpenAIInput(samplePrompt())
	require.Len(t, items, 5, "system messages go to Instructions")

	require.NotNil(t, items[0].OfOutputMessage)
	require.NotNil(t, items[1].OfMessage)
	assert.Equal(t, "add 1 and 2", items[1].OfMessage.Content.OfString.Value)
	require.NotNil(t, items[4].OfMessage)
}

func TestBuildAnthropicMessages(t *testing.T) {
	msgs := buildAnthropicMessages(samplePrompt())
	require.Len(t, msgs, 5)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[4].Role))
}

func TestBuildGeminiHistory(t *testing.T) {
	conv := alternate(samplePrompt().Conversation())
	history := buildGeminiHistory(conv)
	require.Len(t, history, 5)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
}

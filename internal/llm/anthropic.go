package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mfateev/toolchat/internal/models"
)

// defaultAnthropicMaxTokens is used when num_predict is unset; the Messages
// API requires a value.
const defaultAnthropicMaxTokens = 1024

// AnthropicProvider uses Anthropic's Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    models.ModelConfig
}

// NewAnthropicProvider creates an Anthropic provider keyed by
// ANTHROPIC_API_KEY.
func NewAnthropicProvider(cfg models.ModelConfig) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")))
	return &AnthropicProvider{client: client, cfg: cfg}
}

// ListModels pages through Models.List.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	iter := p.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{})
	var ids []string
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, classifyAnthropicError(err)
	}
	return ids, nil
}

func (p *AnthropicProvider) Model(name string) (Model, error) {
	if name == "" {
		return nil, errors.New("model name is required")
	}
	return &anthropicModel{provider: p, name: name}, nil
}

type anthropicModel struct {
	provider *AnthropicProvider
	name     string
}

func (m *anthropicModel) Name() string { return m.name }

func (m *anthropicModel) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	cfg := m.provider.cfg
	maxTokens := int64(cfg.NumPredict)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.name),
		MaxTokens: maxTokens,
		Messages:  buildAnthropicMessages(prompt),
	}
	if system := prompt.SystemText(); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if cfg.Temperature > 0 {
		// Anthropic caps temperature at 1.0.
		params.Temperature = anthropic.Float(min(cfg.Temperature, 1.0))
	}

	resp, err := m.provider.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropicError(err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func buildAnthropicMessages(prompt Prompt) []anthropic.MessageParam {
	conv := alternate(prompt.Conversation())
	out := make([]anthropic.MessageParam, 0, len(conv))
	for _, msg := range conv {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == models.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyByStatusCode(apiErr.StatusCode, err)
	}
	return classifyMessage("Anthropic", err)
}

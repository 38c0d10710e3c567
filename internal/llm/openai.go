package llm

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/mfateev/toolchat/internal/models"
)

// OpenAIProvider uses OpenAI's Responses API.
type OpenAIProvider struct {
	client openai.Client
	cfg    models.ModelConfig
}

// NewOpenAIProvider creates an OpenAI provider keyed by OPENAI_API_KEY.
func NewOpenAIProvider(cfg models.ModelConfig) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
	return &OpenAIProvider{client: client, cfg: cfg}
}

// ListModels returns chat-capable model ids, sorted.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	var ids []string
	for _, m := range page.Data {
		if isOpenAIChatModel(m.ID) {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (p *OpenAIProvider) Model(name string) (Model, error) {
	if name == "" {
		return nil, errors.New("model name is required")
	}
	return &openAIModel{provider: p, name: name}, nil
}

type openAIModel struct {
	provider *OpenAIProvider
	name     string
}

func (m *openAIModel) Name() string { return m.name }

func (m *openAIModel) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(m.name),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam(buildOpenAIInput(prompt)),
		},
	}
	if instructions := prompt.SystemText(); instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	cfg := m.provider.cfg
	if cfg.Temperature > 0 {
		params.Temperature = openai.Float(cfg.Temperature)
	}
	if cfg.NumPredict > 0 {
		params.MaxOutputTokens = openai.Int(int64(cfg.NumPredict))
	}

	resp, err := m.provider.client.Responses.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	return resp.OutputText(), nil
}

// buildOpenAIInput converts the conversation part of the prompt.
//
//   - user → EasyInputMessageParam{Role: "user"}
//   - assistant → ResponseOutputMessageParam (fed back as input)
func buildOpenAIInput(prompt Prompt) []responses.ResponseInputItemUnionParam {
	conv := prompt.Conversation()
	items := make([]responses.ResponseInputItemUnionParam, 0, len(conv))
	for _, msg := range conv {
		switch msg.Role {
		case models.RoleUser:
			items = append(items, responses.ResponseInputItemUnionParam{
				OfMessage: &responses.EasyInputMessageParam{
					Role: responses.EasyInputMessageRoleUser,
					Content: responses.EasyInputMessageContentUnionParam{
						OfString: openai.String(msg.Content),
					},
				},
			})
		case models.RoleAssistant:
			items = append(items, responses.ResponseInputItemUnionParam{
				OfOutputMessage: &responses.ResponseOutputMessageParam{
					Content: []responses.ResponseOutputMessageContentUnionParam{{
						OfOutputText: &responses.ResponseOutputTextParam{
							Text:        msg.Content,
							Annotations: []responses.ResponseOutputTextAnnotationUnionParam{},
						},
					}},
					Status: responses.ResponseOutputMessageStatusCompleted,
				},
			})
		}
	}
	return items
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyByStatusCode(apiErr.StatusCode, err)
	}
	return classifyMessage("OpenAI", err)
}

// isOpenAIChatModel keeps chat model families and drops audio, image,
// embedding, fine-tuned, and date-pinned variants.
func isOpenAIChatModel(id string) bool {
	if strings.HasPrefix(id, "ft:") {
		return false
	}
	known := false
	for _, prefix := range []string{"gpt-", "o1", "o3", "o4", "chatgpt-"} {
		if strings.HasPrefix(id, prefix) {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	for _, prefix := range []string{"gpt-audio", "gpt-image", "chatgpt-image"} {
		if strings.HasPrefix(id, prefix) {
			return false
		}
	}
	for _, sub := range []string{"-tts", "-realtime", "-transcribe", "-instruct", "-preview", "-search", "-audio-"} {
		if strings.Contains(id, sub) {
			return false
		}
	}
	return !hasDateSuffix(id)
}

// hasDateSuffix matches "-20XX-" stamps and trailing "-NNNN" snapshots.
func hasDateSuffix(id string) bool {
	for i := 0; i+5 < len(id); i++ {
		if id[i] == '-' && id[i+1] == '2' && id[i+2] == '0' &&
			isDigit(id[i+3]) && isDigit(id[i+4]) && id[i+5] == '-' {
			return true
		}
	}
	if i := strings.LastIndex(id, "-"); i >= 0 {
		suffix := id[i+1:]
		if len(suffix) >= 4 && strings.IndexFunc(suffix, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

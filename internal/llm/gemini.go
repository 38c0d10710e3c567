package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mfateev/toolchat/internal/models"
)

// GeminiProvider uses Google's Generative Language API.
type GeminiProvider struct {
	client *genai.Client
	cfg    models.ModelConfig
}

// NewGeminiProvider creates a Gemini provider keyed by GOOGLE_API_KEY or
// GEMINI_API_KEY.
func NewGeminiProvider(ctx context.Context, cfg models.ModelConfig) (*GeminiProvider, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiProvider{client: client, cfg: cfg}, nil
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// ListModels returns the models that support generateContent.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	it := p.client.ListModels(ctx)
	var names []string
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifyGeminiError(err)
		}
		for _, method := range info.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, strings.TrimPrefix(info.Name, "models/"))
				break
			}
		}
	}
	return names, nil
}

func (p *GeminiProvider) Model(name string) (Model, error) {
	if name == "" {
		return nil, errors.New("model name is required")
	}
	return &geminiModel{provider: p, name: name}, nil
}

type geminiModel struct {
	provider *GeminiProvider
	name     string
}

func (m *geminiModel) Name() string { return m.name }

func (m *geminiModel) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	model := m.provider.client.GenerativeModel(m.name)
	model.ResponseMIMEType = "application/json"
	cfg := m.provider.cfg
	if cfg.Temperature > 0 {
		model.SetTemperature(float32(cfg.Temperature))
	}
	if cfg.NumPredict > 0 {
		model.SetMaxOutputTokens(int32(cfg.NumPredict))
	}
	if system := prompt.SystemText(); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	conv := alternate(prompt.Conversation())
	if len(conv) == 0 {
		return "", errors.New("gemini: empty prompt")
	}
	last := conv[len(conv)-1]
	if last.Role != models.RoleUser {
		// Gemini expects the final turn to come from the user.
		conv = append(conv, Message{Role: models.RoleUser, Content: "(continue)"})
		last = conv[len(conv)-1]
	}

	cs := model.StartChat()
	cs.History = buildGeminiHistory(conv[:len(conv)-1])
	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", models.NewTransientError("gemini: empty response")
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

func buildGeminiHistory(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return out
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyByStatusCode(apiErr.Code, err)
	}
	return classifyMessage("Gemini", err)
}

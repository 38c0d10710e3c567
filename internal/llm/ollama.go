package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/mfateev/toolchat/internal/models"
)

// OllamaProvider talks to a local or remote Ollama server.
type OllamaProvider struct {
	client *ollama.Client
	cfg    models.ModelConfig
}

// NewOllamaProvider creates a provider for cfg.ServerURL.
func NewOllamaProvider(cfg models.ModelConfig) (*OllamaProvider, error) {
	host := cfg.ServerURL
	if host == "" {
		host = models.DefaultModelConfig().ServerURL
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid model server url %q: %w", host, err)
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	return &OllamaProvider{client: ollama.NewClient(u, httpClient), cfg: cfg}, nil
}

// ListModels returns the names of every locally pulled model, sorted.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, classifyOllamaError(err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Model returns a JSON-mode chat model.
func (p *OllamaProvider) Model(name string) (Model, error) {
	if name == "" {
		return nil, errors.New("model name is required")
	}
	return &ollamaModel{provider: p, name: name}, nil
}

type ollamaModel struct {
	provider *OllamaProvider
	name     string
}

func (m *ollamaModel) Name() string { return m.name }

func (m *ollamaModel) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	stream := false
	req := &ollama.ChatRequest{
		Model:    m.name,
		Messages: buildOllamaMessages(prompt),
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
		Options:  ollamaOptions(m.provider.cfg),
	}

	var text strings.Builder
	err := m.provider.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", classifyOllamaError(err)
	}
	return text.String(), nil
}

// buildOllamaMessages keeps the prompt order as-is; Ollama accepts system
// messages inline and does not require alternation.
func buildOllamaMessages(prompt Prompt) []ollama.Message {
	out := make([]ollama.Message, 0, len(prompt))
	for _, msg := range prompt {
		out = append(out, ollama.Message{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

func ollamaOptions(cfg models.ModelConfig) map[string]any {
	opts := map[string]any{}
	if cfg.Temperature > 0 {
		opts["temperature"] = cfg.Temperature
	}
	if cfg.NumPredict > 0 {
		opts["num_predict"] = cfg.NumPredict
	}
	return opts
}

func classifyOllamaError(err error) error {
	var statusErr ollama.StatusError
	if errors.As(err, &statusErr) {
		return classifyByStatusCode(statusErr.StatusCode, err)
	}
	return classifyMessage("Ollama", err)
}

// Package llm adapts hosted and local language models to the single call
// the conversation driver needs: send an ordered prompt, get raw text back.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mfateev/toolchat/internal/models"
)

// Message is one prompt entry.
type Message struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// Prompt is the ordered prompt: system instructions first, then history,
// then the new input.
type Prompt []Message

// SystemText joins every system message, in order, with blank lines.
func (p Prompt) SystemText() string {
	var parts []string
	for _, m := range p {
		if m.Role == models.RoleSystem && m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Conversation returns the non-system messages, in order.
func (p Prompt) Conversation() []Message {
	out := make([]Message, 0, len(p))
	for _, m := range p {
		if m.Role != models.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Model is a single invokable model.
type Model interface {
	Name() string
	Invoke(ctx context.Context, prompt Prompt) (string, error)
}

// Lister lists the model names a host serves.
type Lister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Provider is a model host.
type Provider interface {
	Lister
	Model(name string) (Model, error)
}

// conversationStart opens a conversation that has no user turn yet, such as
// the automatic first turn of a session.
const conversationStart = "(conversation start)"

// alternate merges consecutive same-role messages and makes sure the
// conversation opens with a user turn, adding one when it is empty. Hosted
// chat APIs that require strict user/assistant alternation need this.
func alternate(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs)+1)
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 || out[0].Role != models.RoleUser {
		out = append([]Message{{Role: models.RoleUser, Content: conversationStart}}, out...)
	}
	return out
}

// classifyByStatusCode maps an HTTP status code to a TransportError.
// Shared by all provider error classifiers.
//
// Classification:
//   - 429 (Too Many Requests): rate limit, retryable
//   - 408 (Request Timeout), 409 (Conflict): transient, retryable
//   - Other 4xx: fatal client error (e.g., 400, 401, 403, 404)
//   - 5xx: transient server error, retryable
func classifyByStatusCode(statusCode int, err error) *models.TransportError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return models.NewAPILimitError(fmt.Sprintf("rate limit (%d): %v", statusCode, err))
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusConflict:
		return models.NewTransientError(fmt.Sprintf("retryable error (%d): %v", statusCode, err))
	case statusCode >= 400 && statusCode < 500:
		return models.NewFatalError(fmt.Sprintf("client error (%d): %v", statusCode, err))
	case statusCode >= 500:
		return models.NewTransientError(fmt.Sprintf("server error (%d): %v", statusCode, err))
	default:
		return models.NewTransientError(fmt.Sprintf("unexpected status (%d): %v", statusCode, err))
	}
}

// classifyMessage is the fallback for errors that carry no status code.
func classifyMessage(provider string, err error) *models.TransportError {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate_limit") || strings.Contains(msg, "rate limit") {
		return models.NewAPILimitError(err.Error())
	}
	return models.NewTransientError(fmt.Sprintf("%s API error: %v", provider, err))
}

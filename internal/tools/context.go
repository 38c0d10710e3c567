// Package tools provides the tool registry, argument validation, and the
// dispatcher that routes a parsed model tool call to its handler.
package tools

import (
	"context"

	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/reprompt"
	"github.com/mfateev/toolchat/internal/settings"
)

// Handler is the interface for tool implementations.
type Handler interface {
	// Spec returns the tool's name, description, and declared parameters.
	Spec() ToolSpec

	// Handle executes the tool. Arguments have already been validated
	// against Spec().Parameters.
	Handle(ctx context.Context, invocation *Invocation) (*models.ToolResult, error)
}

// Invocation carries one tool call together with the session state a
// handler may touch. Nothing here is global; the dispatcher fills it from
// the session that owns the call.
type Invocation struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`

	Settings *settings.Store   `json:"-"`
	Reprompt *reprompt.Counter `json:"-"`
	Gate     *gate.Gate        `json:"-"`
	Logger   logging.Logger    `json:"-"`
}

// Package mcpserver exposes a session's registered tools over the Model
// Context Protocol. Every call goes through the session's dispatcher, so
// argument validation and the execution gate apply exactly as they do for
// model-issued calls.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/tools"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "toolchat"

// New builds an MCP server with one tool per registry entry.
func New(s *session.Session, version string) *gomcp.Server {
	server := gomcp.NewServer(&gomcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	for _, spec := range s.Registry.Specs() {
		server.AddTool(&gomcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: InputSchema(spec),
		}, handler(s, spec.Name))
	}
	return server
}

// InputSchema renders a tool's parameters as a JSON Schema object.
func InputSchema(spec tools.ToolSpec) map[string]any {
	props := make(map[string]any, len(spec.Parameters))
	required := []string{}
	for _, p := range spec.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func handler(s *session.Session, name string) gomcp.ToolHandler {
	return func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		var args map[string]any
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		res, err := s.Dispatcher.Dispatch(ctx, models.ToolCall{
			Tool:    name,
			Args:    args,
			HasTool: true,
			HasArgs: args != nil,
		})
		if err != nil {
			return errorResult(err), nil
		}
		return toResult(res), nil
	}
}

// toResult puts the message first and any side data as a JSON block.
func toResult(res *models.ToolResult) *gomcp.CallToolResult {
	out := &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: res.Message}},
	}
	if res.HasData() {
		data, err := json.Marshal(res.Data)
		if err != nil {
			data = []byte(fmt.Sprintf("%q", fmt.Sprint(res.Data)))
		}
		out.Content = append(out.Content, &gomcp.TextContent{Text: string(data)})
		out.StructuredContent = res.Data
	}
	return out
}

func errorResult(err error) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

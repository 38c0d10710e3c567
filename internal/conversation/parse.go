package conversation

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mfateev/toolchat/internal/models"
)

// ParseToolCall decodes raw model output into a tool call. The output may
// be wrapped in a ```json fence or surrounded by stray prose; everything
// between the outermost braces is decoded.
func ParseToolCall(raw string) (models.ToolCall, error) {
	body := extractObject(raw)
	if body == "" || !gjson.Valid(body) {
		return models.ToolCall{}, &models.ParseError{Output: raw}
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return models.ToolCall{}, &models.ParseError{Output: raw}
	}

	call := models.ToolCall{Raw: raw}

	if tool := doc.Get("tool"); tool.Exists() && tool.Type != gjson.Null {
		if tool.Type != gjson.String {
			return models.ToolCall{}, &models.ParseError{Output: raw, Cause: errors.New(`"tool" must be a string`)}
		}
		call.Tool = tool.String()
		call.HasTool = true
	}

	if args := doc.Get("args"); args.Exists() && args.Type != gjson.Null {
		if !args.IsObject() {
			return models.ToolCall{}, &models.ParseError{Output: raw, Cause: errors.New(`"args" must be an object`)}
		}
		m, _ := args.Value().(map[string]any)
		call.Args = m
		call.HasArgs = true
	}

	return call, nil
}

// extractObject trims code fences and anything outside the outermost
// braces.
func extractObject(raw string) string {
	s := strings.TrimSpace(raw)
	// Only a fence that opens before the object counts; fences inside JSON
	// strings are content.
	if i := strings.Index(s, "```"); i >= 0 && (i < strings.Index(s, "{") || !strings.Contains(s, "{")) {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

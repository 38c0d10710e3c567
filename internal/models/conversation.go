// Package models contains shared types for toolchat.
//
// Everything here is plain data: it crosses package boundaries, activity
// boundaries, and ContinueAsNew, so all types must stay JSON-serializable.
package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a session's history.
//
// SideData carries non-textual artifacts (tables, returned objects) that the
// host renders next to the message.
type Message struct {
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	SideData map[string]any `json:"side_data,omitempty"`

	// Seq is assigned by history on append.
	Seq int `json:"seq"`
}

// ToolCall is a model turn's output decoded into a single tool invocation.
type ToolCall struct {
	Tool string         `json:"tool,omitempty"`
	Args map[string]any `json:"args,omitempty"`

	// HasTool and HasArgs record whether the keys were present at all,
	// as opposed to present but empty.
	HasTool bool `json:"-"`
	HasArgs bool `json:"-"`

	// Raw is the model text the call was parsed from.
	Raw string `json:"-"`
}

// ToolResult is what a tool hands back to the conversation.
type ToolResult struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// TextResult wraps plain text in a ToolResult with no side data.
func TextResult(s string) *ToolResult {
	return &ToolResult{Message: s}
}

// HasData reports whether the result carries any side-channel values.
func (r *ToolResult) HasData() bool {
	return r != nil && len(r.Data) > 0
}

// Decision is the user's answer to a confirmation prompt.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// Resolution is the lifecycle state of a PendingAction.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionApproved   Resolution = "approved"
	ResolutionDenied     Resolution = "denied"
	ResolutionExpired    Resolution = "expired"
)

// PendingAction is a gated execution waiting on a human decision.
//
// Only the executor kind and payload are stored; the gate looks the executor
// up again when the action is resolved.
type PendingAction struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	AllowKey   string     `json:"allow_key"`
	Payload    string     `json:"payload"`
	Resolution Resolution `json:"resolution"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Unresolved reports whether the action still awaits a decision.
func (p *PendingAction) Unresolved() bool {
	return p != nil && p.Resolution == ResolutionUnresolved
}

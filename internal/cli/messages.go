package cli

import "github.com/mfateev/toolchat/internal/models"

// SessionReadyMsg is sent once a session has been created or switched to.
type SessionReadyMsg struct {
	SessionID string
	// Replay renders the whole history, user messages included.
	Replay bool
}

// TurnDoneMsg is sent when a turn ends.
type TurnDoneMsg struct {
	SessionID string
	Alerts    []string
	// Auto is set for turns started by Poll; Ran reports whether one ran.
	Auto bool
	Ran  bool
	Err  error
}

// ResolvedMsg is sent after a confirmation was answered.
type ResolvedMsg struct {
	SessionID string
	Decision  models.Decision
	Result    *models.ToolResult
	Alerts    []string
	Err       error
}

// ModelsListedMsg carries the result of /models.
type ModelsListedMsg struct {
	Current string
	Names   []string
	Err     error
}

// ModelLoadedMsg carries the result of /model <name>.
type ModelLoadedMsg struct {
	Name string
	Err  error
}

// Package workflow contains the Temporal workflow that hosts a durable
// chat session.
//
// state.go holds the workflow's serializable state and the handler payload
// types shared with clients.
package workflow

import (
	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/settings"
)

// Handler name constants for Temporal query and update handlers.
const (
	// QueryGetMessages returns the session's full history.
	QueryGetMessages = "get_messages"

	// QueryGetStatus returns the current phase, pending action, and counters.
	QueryGetStatus = "get_status"

	// UpdateUserInput queues a user message for the next turn.
	UpdateUserInput = "user_input"

	// UpdateApprovalResponse answers the pending confirmation. It completes
	// once the decision has been applied.
	UpdateApprovalResponse = "approval_response"

	// UpdateSettings changes session settings such as the tool toggles.
	UpdateSettings = "update_settings"

	// UpdateClearHistory drops the conversation history.
	UpdateClearHistory = "clear_history"

	// UpdateModel switches the model used for later turns.
	UpdateModel = "update_model"

	// UpdateListModels lists the models served by the current provider.
	UpdateListModels = "list_models"

	// UpdateShutdown ends the session.
	UpdateShutdown = "shutdown"
)

// TaskQueue is the task queue the worker polls and clients start on.
const TaskQueue = "toolchat"

// DefaultMaxTurns is the number of turns after which the workflow
// continues as new.
const DefaultMaxTurns = 100

// Phase is what the workflow is doing right now.
type Phase string

const (
	PhaseStarting        Phase = "starting"
	PhaseWaitingForInput Phase = "waiting_for_input"
	PhaseRunningTurn     Phase = "running_turn"
	PhaseApprovalPending Phase = "approval_pending"
	PhaseResolving       Phase = "resolving"
)

// WorkflowInput starts a chat session.
type WorkflowInput struct {
	SessionID string               `json:"session_id"`
	Model     models.ModelConfig   `json:"model"`
	Settings  map[string]any       `json:"settings,omitempty"`
	Prompts   conversation.Options `json:"prompts"`
	MaxTurns  int                  `json:"max_turns,omitempty"`

	// Snapshot is set when continuing as new.
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
}

// WorkflowResult is returned when the session ends.
type WorkflowResult struct {
	SessionID string `json:"session_id"`
	TurnCount int    `json:"turn_count"`
	EndReason string `json:"end_reason"`
}

// UserInput is the payload for the user_input update.
type UserInput struct {
	Content string `json:"content"`
}

// UserInputAccepted is returned by the user_input update.
type UserInputAccepted struct {
	Queued int `json:"queued"`
}

// ApprovalResponse is the payload for the approval_response update.
type ApprovalResponse struct {
	Decision models.Decision `json:"decision"`
}

// ApprovalResult is returned by the approval_response update.
type ApprovalResult struct {
	Message string `json:"message"`
	Expired bool   `json:"expired,omitempty"`
}

// SettingsUpdate is the payload for the update_settings update.
type SettingsUpdate struct {
	Values map[string]any `json:"values"`
}

// SettingsResponse carries the settings after an update.
type SettingsResponse struct {
	Settings map[string]any `json:"settings"`
}

// UpdateModelRequest is the payload for the update_model update. An empty
// Provider keeps the current one.
type UpdateModelRequest struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model"`
}

// UpdateModelResponse is returned by the update_model update.
type UpdateModelResponse struct {
	Model models.ModelConfig `json:"model"`
}

// ListModelsResponse is returned by the list_models update.
type ListModelsResponse struct {
	Current string   `json:"current"`
	Models  []string `json:"models"`
}

// ClearHistoryRequest is the payload for the clear_history update.
type ClearHistoryRequest struct{}

// ShutdownRequest is the payload for the shutdown update.
type ShutdownRequest struct{}

// Ack acknowledges updates that return nothing else.
type Ack struct {
	Acknowledged bool `json:"acknowledged"`
}

// Status is the response from the get_status query.
type Status struct {
	SessionID     string                `json:"session_id"`
	Phase         Phase                 `json:"phase"`
	Model         models.ModelConfig    `json:"model"`
	Pending       *models.PendingAction `json:"pending,omitempty"`
	QueuedInputs  int                   `json:"queued_inputs"`
	RepromptCount int                   `json:"reprompt_count"`
	MessageCount  int                   `json:"message_count"`
	TurnCount     int                   `json:"turn_count"`
	Alerts        []string              `json:"alerts,omitempty"`
	LastError     string                `json:"last_error,omitempty"`
	WorkerVersion string                `json:"worker_version,omitempty"`
}

// SessionState is the workflow's state. Everything in it survives
// ContinueAsNew through the snapshot.
type SessionState struct {
	SessionID string
	Model     models.ModelConfig
	Prompts   conversation.Options
	Snapshot  session.Snapshot
	MaxTurns  int
	TurnCount int

	phase     Phase
	inputs    []string
	decision  *models.Decision
	outcome   ApprovalResult
	clear     bool
	shutdown  bool
	alerts    []string
	lastError string
}

func newSessionState(input WorkflowInput) *SessionState {
	s := &SessionState{
		SessionID: input.SessionID,
		Model:     input.Model,
		Prompts:   input.Prompts,
		MaxTurns:  input.MaxTurns,
		phase:     PhaseStarting,
	}
	if s.MaxTurns <= 0 {
		s.MaxTurns = DefaultMaxTurns
	}
	if input.Snapshot != nil {
		s.Snapshot = *input.Snapshot
	} else {
		s.Snapshot = session.Snapshot{ID: input.SessionID}
	}
	if s.Snapshot.Settings == nil {
		s.Snapshot.Settings = make(map[string]any)
	}
	for k, v := range input.Settings {
		if _, ok := s.Snapshot.Settings[k]; !ok || input.Snapshot == nil {
			s.Snapshot.Settings[k] = v
		}
	}
	return s
}

func (s *SessionState) hasPending() bool {
	return s.Snapshot.Pending.Unresolved()
}

func (s *SessionState) settingBool(key string, fallback bool) bool {
	v, ok := s.Snapshot.Settings[key].(bool)
	if !ok {
		return fallback
	}
	return v
}

// autoTurnArmed reports whether the next loop iteration should run an
// automatic turn.
func (s *SessionState) autoTurnArmed() bool {
	return s.Snapshot.RepromptCount > 0 && s.settingBool(settings.AutoPrompt, true)
}

func (s *SessionState) idlePhase() Phase {
	if s.hasPending() {
		return PhaseApprovalPending
	}
	return PhaseWaitingForInput
}

func (s *SessionState) status() Status {
	var pending *models.PendingAction
	if s.hasPending() {
		cp := *s.Snapshot.Pending
		pending = &cp
	}
	return Status{
		SessionID:     s.SessionID,
		Phase:         s.phase,
		Model:         s.Model,
		Pending:       pending,
		QueuedInputs:  len(s.inputs),
		RepromptCount: s.Snapshot.RepromptCount,
		MessageCount:  len(s.Snapshot.Messages),
		TurnCount:     s.TurnCount,
		Alerts:        s.alerts,
		LastError:     s.lastError,
	}
}

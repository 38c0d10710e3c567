package session

import "github.com/mfateev/toolchat/internal/models"

// Snapshot is the serializable state of a session. Hooks such as the chat
// callback are rebuilt on restore, not stored.
type Snapshot struct {
	ID            string                `json:"id"`
	Messages      []models.Message      `json:"messages"`
	RepromptCount int                   `json:"reprompt_count"`
	Settings      map[string]any        `json:"settings"`
	Pending       *models.PendingAction `json:"pending,omitempty"`
}

// Snapshot captures the session's state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:            s.ID,
		Messages:      s.History.List(),
		RepromptCount: s.Reprompt.Pending(),
		Settings:      s.Settings.Serializable(),
		Pending:       s.Gate.Snapshot(),
	}
}

// Restore rebuilds a session from a snapshot. opts supplies what a
// snapshot cannot carry: the model source, sink, and logger. Snapshot
// settings override opts.Settings.
func Restore(snap Snapshot, opts Options) *Session {
	opts.ID = snap.ID
	merged := make(map[string]any, len(opts.Settings)+len(snap.Settings))
	for k, v := range opts.Settings {
		merged[k] = v
	}
	for k, v := range snap.Settings {
		merged[k] = v
	}
	opts.Settings = merged

	s := New(opts)
	s.History.ReplaceAll(snap.Messages)
	if snap.RepromptCount > 0 {
		s.Reprompt.TrySet(snap.RepromptCount, true)
	}
	s.Gate.Restore(snap.Pending)
	return s
}

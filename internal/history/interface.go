// Package history stores the per-session message sequence that is sent back
// to the model on every turn.
package history

import "github.com/mfateev/toolchat/internal/models"

// Store is the interface for a single session's history.
//
// Entries are append-only except for Clear and ReplaceAll. The sequence
// returned by List is exactly what the model sees; display filtering is a
// separate step (see Visible).
type Store interface {
	Append(role models.Role, content string, sideData map[string]any) models.Message
	List() []models.Message
	Len() int
	Clear()
	ReplaceAll(messages []models.Message)
}

package history

import (
	"sync"

	"github.com/mfateev/toolchat/internal/models"
)

// InMemoryHistory is the default Store.
type InMemoryHistory struct {
	items []models.Message
	mu    sync.RWMutex
}

// NewInMemoryHistory creates a new in-memory history.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{
		items: make([]models.Message, 0),
	}
}

// Append adds a message and returns it with its Seq assigned.
func (h *InMemoryHistory) Append(role models.Role, content string, sideData map[string]any) models.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg := models.Message{
		Role:     role,
		Content:  content,
		SideData: sideData,
		Seq:      len(h.items),
	}
	h.items = append(h.items, msg)
	return msg
}

// List returns a copy of every message in order.
func (h *InMemoryHistory) List() []models.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]models.Message, len(h.items))
	copy(result, h.items)
	return result
}

// Len returns the number of messages.
func (h *InMemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Clear drops every message.
func (h *InMemoryHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = make([]models.Message, 0)
}

// ReplaceAll replaces all messages with the given ones.
// Re-assigns Seq numbers starting from 0.
func (h *InMemoryHistory) ReplaceAll(messages []models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = make([]models.Message, len(messages))
	copy(h.items, messages)
	for i := range h.items {
		h.items[i].Seq = i
	}
}

// Since returns messages with Seq > sinceSeq. If sinceSeq is beyond the
// current range the history was cleared or trimmed, so every message is
// returned with reset=true.
func (h *InMemoryHistory) Since(sinceSeq int) ([]models.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if sinceSeq >= len(h.items) {
		result := make([]models.Message, len(h.items))
		copy(result, h.items)
		return result, true
	}

	startIdx := sinceSeq + 1
	if startIdx < 0 {
		startIdx = 0
	}
	result := make([]models.Message, len(h.items)-startIdx)
	copy(result, h.items[startIdx:])
	return result, false
}

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mfateev/toolchat/internal/models"
)

// Manager keeps the sessions of one host process.
type Manager struct {
	base Options

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
}

// NewManager creates a manager whose sessions start from base.
func NewManager(base Options) *Manager {
	return &Manager{base: base, sessions: make(map[string]*Session)}
}

// Create starts a new session with a fresh id and runs its Begin step.
func (m *Manager) Create() *Session {
	opts := m.base
	opts.ID = uuid.NewString()
	opts.Settings = copySettings(m.base.Settings)
	s := New(opts)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.order = append(m.order, s.ID)
	m.mu.Unlock()

	s.Driver.Begin()
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns session ids in creation order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Remove forgets a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Resolve answers the pending confirmation of session id.
func (m *Manager) Resolve(ctx context.Context, id string, decision models.Decision) (*models.ToolResult, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return s.Resolve(ctx, decision)
}

func copySettings(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Package settings holds the per-session key/value bag that carries
// permission flags, display preferences, and host hooks into tool handlers.
package settings

import (
	"sort"
	"sync"

	"github.com/mfateev/toolchat/internal/models"
)

// Well-known keys.
const (
	AllowPythonExec   = "allow_python_exec"
	AllowShellExec    = "allow_shell_exec"
	PresentExecDialog = "present_exec_dialog"
	DefaultTool       = "default_tool"
	ChatCallback      = "chat_ai_callback"

	DisplayToolCalls  = "display_tools_calls"
	ChatObjectsInline = "chat_objects_inline"
	AutoPromptAtStart = "auto_prompt_at_start"
	AutoPrompt        = "auto_prompt"

	ExecConfirmTimeout = "exec_confirm_timeout"
)

// ChatCallbackFunc delivers an assistant result back to the host. Calls are
// fire-and-forget; nothing it returns is consumed.
type ChatCallbackFunc func(result *models.ToolResult)

// Store is a mutable string-keyed bag. Keys are never deleted; later writes
// overwrite earlier ones.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Set stores a single value.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// SetAll merges values into the store.
func (s *Store) SetAll(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Bool returns key as a boolean. Absent or non-boolean values yield fallback.
func (s *Store) Bool(key string, fallback bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

// String returns key as a string. Absent or non-string values yield fallback.
func (s *Store) String(key, fallback string) string {
	v, ok := s.Get(key)
	if !ok {
		return fallback
	}
	str, ok := v.(string)
	if !ok {
		return fallback
	}
	return str
}

// Callback returns the chat callback hook, or nil if none is installed.
func (s *Store) Callback() ChatCallbackFunc {
	v, ok := s.Get(ChatCallback)
	if !ok {
		return nil
	}
	switch fn := v.(type) {
	case ChatCallbackFunc:
		return fn
	case func(*models.ToolResult):
		return fn
	}
	return nil
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Serializable returns a copy of every boolean, string, and numeric value.
// Functions and other host hooks are left out.
func (s *Store) Serializable() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		switch v.(type) {
		case bool, string, int, int64, float64:
			out[k] = v
		}
	}
	return out
}

// All returns a shallow copy of every stored value, hooks included.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

var settable = map[string]bool{
	AllowPythonExec:    true,
	AllowShellExec:     true,
	PresentExecDialog:  true,
	DefaultTool:        true,
	DisplayToolCalls:   true,
	ChatObjectsInline:  true,
	AutoPromptAtStart:  true,
	AutoPrompt:         true,
	ExecConfirmTimeout: true,
}

// Settable reports whether a user may change key at runtime. Host hooks
// such as the chat callback are not settable.
func Settable(key string) bool {
	return settable[key]
}

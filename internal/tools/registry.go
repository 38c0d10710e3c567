package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mfateev/toolchat/internal/logging"
)

// DefaultToolName is the fallback tool used when neither the model output
// nor the settings name one.
const DefaultToolName = "converse"

// Registry stores tool handlers by name. One registry exists per session.
type Registry struct {
	mu          sync.RWMutex
	handlers    map[string]Handler
	defaultTool string
	logger      logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		handlers:    make(map[string]Handler),
		defaultTool: DefaultToolName,
		logger:      logger,
	}
}

// Register adds a handler, replacing any handler with the same name.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Spec().Name] = h
}

// Resolve returns the handler for name, or *UnknownToolError.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return h, nil
}

// HasTool checks if a tool is registered.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// DefaultToolName returns the registry's fallback tool name.
func (r *Registry) DefaultToolName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultTool
}

// SetDefaultToolName changes the registry's fallback tool name.
func (r *Registry) SetDefaultToolName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultTool = name
}

// Reset drops every registered handler.
func (r *Registry) Reset() {
	r.mu.Lock()
	n := len(r.handlers)
	r.handlers = make(map[string]Handler)
	r.mu.Unlock()
	r.logger.Info("Tool registry reset", "dropped", n)
}

// Specs returns all tool specs sorted by name.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]ToolSpec, 0, len(r.handlers))
	for _, h := range r.handlers {
		specs = append(specs, h.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// DescribeAll renders one line per tool, sorted by name:
//
//	name(param: type, ...) - description
func (r *Registry) DescribeAll() string {
	var b strings.Builder
	for i, spec := range r.Specs() {
		if i > 0 {
			b.WriteByte('\n')
		}
		params := make([]string, 0, len(spec.Parameters))
		for _, p := range spec.Parameters {
			params = append(params, fmt.Sprintf("%s: %s", p.Name, p.Type))
		}
		fmt.Fprintf(&b, "%s(%s) - %s", spec.Name, strings.Join(params, ", "), oneLine(spec.Description))
	}
	return b.String()
}

// FormatInstructions builds the system prompt that tells the model which
// tools exist and the exact shape of a call.
func (r *Registry) FormatInstructions() string {
	return "You are an assistant that must use the following set of tools.\n" +
		"Here are the names and descriptions for each tool:\n\n" +
		r.DescribeAll() + "\n\n" +
		"The tool name and parameters must match perfectly.\n" +
		"Respond only with a JSON blob and no extra text outside that.\n" +
		"The JSON blob must contain a single tool invocation with a key called 'tool' " +
		"for the tool name, and a second key called 'args' holding an object of " +
		"parameters matching the tool prototype."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

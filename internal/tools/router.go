package tools

import (
	"context"

	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/reprompt"
	"github.com/mfateev/toolchat/internal/settings"
)

// Dispatcher resolves a parsed tool call against the registry and invokes
// the handler with the owning session's state.
type Dispatcher struct {
	registry *Registry
	settings *settings.Store
	reprompt *reprompt.Counter
	gate     *gate.Gate
	logger   logging.Logger
}

// NewDispatcher creates a dispatcher bound to one session's state.
func NewDispatcher(registry *Registry, store *settings.Store, counter *reprompt.Counter, g *gate.Gate, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		registry: registry,
		settings: store,
		reprompt: counter,
		gate:     g,
		logger:   logger,
	}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Target returns the tool name a call resolves to: the call's own tool,
// else the default_tool setting, else the registry default.
func (d *Dispatcher) Target(call models.ToolCall) string {
	if call.HasTool && call.Tool != "" {
		return call.Tool
	}
	if d.settings != nil {
		if name := d.settings.String(settings.DefaultTool, ""); name != "" {
			return name
		}
	}
	return d.registry.DefaultToolName()
}

// Dispatch invokes the handler named by call exactly once. A call without
// args is dispatched with an empty argument map.
func (d *Dispatcher) Dispatch(ctx context.Context, call models.ToolCall) (*models.ToolResult, error) {
	name := d.Target(call)
	handler, err := d.registry.Resolve(name)
	if err != nil {
		d.logger.Warn("Tool not found", "tool", name)
		return nil, err
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	if err := handler.Spec().Validate(args); err != nil {
		return nil, err
	}

	d.logger.Debug("Dispatching tool", "tool", name)
	result, err := handler.Handle(ctx, &Invocation{
		ToolName:  name,
		Arguments: args,
		Settings:  d.settings,
		Reprompt:  d.reprompt,
		Gate:      d.gate,
		Logger:    d.logger,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = models.TextResult("")
	}
	return result, nil
}

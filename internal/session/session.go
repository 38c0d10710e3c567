// Package session bundles everything one conversation owns: registry,
// settings, re-prompt counter, gate, history, and driver. Nothing is shared
// between sessions except the model source.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/history"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/reprompt"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
	"github.com/mfateev/toolchat/internal/tools/handlers"
)

// Options configures a new session.
type Options struct {
	// ID identifies the session. Empty means a new random id.
	ID string

	Models   conversation.ModelSource
	Settings map[string]any
	Prompts  conversation.Options
	Sink     conversation.Sink
	Logger   logging.Logger

	// Now is used for confirmation expiry. Defaults to time.Now.
	Now func() time.Time
}

// Session is one conversation.
type Session struct {
	ID string

	Registry   *tools.Registry
	Settings   *settings.Store
	Reprompt   *reprompt.Counter
	Gate       *gate.Gate
	History    *history.InMemoryHistory
	Dispatcher *tools.Dispatcher
	Driver     *conversation.Driver

	logger logging.Logger
	now    func() time.Time
}

// New builds a session with the built-in tools installed and the driver
// registered as the chat callback.
func New(opts Options) *Session {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := logging.With(opts.Logger, "session_id", opts.ID)

	s := &Session{
		ID:       opts.ID,
		Settings: settings.New(),
		Reprompt: reprompt.New(),
		History:  history.NewInMemoryHistory(),
		logger:   logger,
		now:      opts.Now,
	}
	s.Settings.SetAll(opts.Settings)
	s.Registry = tools.NewRegistry(logger)
	s.Gate = gate.New(s.Settings, s.Reprompt, logger)
	handlers.Install(s.Registry, s.Gate)
	if name := s.Settings.String(settings.DefaultTool, ""); name != "" {
		s.Registry.SetDefaultToolName(name)
	}

	s.Dispatcher = tools.NewDispatcher(s.Registry, s.Settings, s.Reprompt, s.Gate, logger)
	s.Driver = conversation.New(conversation.Deps{
		Models:     opts.Models,
		Dispatcher: s.Dispatcher,
		History:    s.History,
		Settings:   s.Settings,
		Reprompt:   s.Reprompt,
		Sink:       opts.Sink,
		Logger:     logger,
	}, opts.Prompts)
	s.Settings.Set(settings.ChatCallback, settings.ChatCallbackFunc(s.Driver.Deliver))
	return s
}

// Submit runs a turn for user input.
func (s *Session) Submit(ctx context.Context, input string) error {
	return s.Driver.RunTurn(ctx, input)
}

// Poll expires a stale confirmation, then runs at most one automatic turn.
func (s *Session) Poll(ctx context.Context) (bool, error) {
	s.ExpireStale()
	return s.Driver.Poll(ctx)
}

// ExpireStale expires the pending confirmation if it has outlived
// exec_confirm_timeout.
func (s *Session) ExpireStale() bool {
	return s.Gate.ExpireStale(s.now())
}

// Resolve answers the pending confirmation.
func (s *Session) Resolve(ctx context.Context, decision models.Decision) (*models.ToolResult, error) {
	return s.Gate.Resolve(ctx, decision)
}

// Pending returns the unresolved confirmation, if any.
func (s *Session) Pending() (models.PendingAction, bool) {
	return s.Gate.Pending()
}

// Messages returns the full model-visible history.
func (s *Session) Messages() []models.Message {
	return s.History.List()
}

// Visible returns the history filtered for display.
func (s *Session) Visible() []models.Message {
	return history.Visible(s.History.List(), s.Settings.Bool(settings.DisplayToolCalls, false))
}

// ClearHistory drops every message and any armed automatic turns.
func (s *Session) ClearHistory() {
	s.History.Clear()
	s.Reprompt.Clear()
	s.logger.Info("History cleared")
}

// SetSink changes where rendered messages go.
func (s *Session) SetSink(sink conversation.Sink) {
	s.Driver.SetSink(sink)
}

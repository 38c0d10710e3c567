// Package conversation runs turns: compose a prompt, call the model, parse
// its tool call, dispatch it, and record the outcome in history.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/mfateev/toolchat/internal/history"
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/reprompt"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
)

// MaxAttempts is the number of tries per externally triggered turn.
const MaxAttempts = 3

// Messages written by the driver.
const (
	FinalFailureMessage = "All attempts failed. Please try again later."
	PrivateNote         = "{'private assistant note': tool executed successfully and return an object to user.'}"
	DefaultWelcome      = "How can I help you?"
)

// ModelSource yields the model to call for the next attempt.
type ModelSource interface {
	Current() (llm.Model, error)
}

type fixedModel struct{ m llm.Model }

func (f fixedModel) Current() (llm.Model, error) { return f.m, nil }

// FixedModel returns a ModelSource that always yields m.
func FixedModel(m llm.Model) ModelSource {
	return fixedModel{m: m}
}

// Options are the per-session prompt texts.
type Options struct {
	PurposePrompt     string
	EnvironmentPrompt string
	WelcomeMessage    string
}

// Driver orchestrates turns for one session. It is not safe for concurrent
// turns; hosts run one turn at a time per session.
type Driver struct {
	models     ModelSource
	dispatcher *tools.Dispatcher
	history    history.Store
	settings   *settings.Store
	reprompt   *reprompt.Counter
	sink       Sink
	logger     logging.Logger
	opts       Options
}

// Deps bundles a driver's collaborators.
type Deps struct {
	Models     ModelSource
	Dispatcher *tools.Dispatcher
	History    history.Store
	Settings   *settings.Store
	Reprompt   *reprompt.Counter
	Sink       Sink
	Logger     logging.Logger
}

// New creates a driver.
func New(deps Deps, opts Options) *Driver {
	if deps.Sink == nil {
		deps.Sink = SinkFuncs{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	return &Driver{
		models:     deps.Models,
		dispatcher: deps.Dispatcher,
		history:    deps.History,
		settings:   deps.Settings,
		reprompt:   deps.Reprompt,
		sink:       deps.Sink,
		logger:     deps.Logger,
		opts:       opts,
	}
}

// SetSink replaces the rendering sink.
func (d *Driver) SetSink(sink Sink) {
	if sink == nil {
		sink = SinkFuncs{}
	}
	d.sink = sink
}

// Begin prepares a fresh session. With empty history it either arms one
// automatic turn (auto_prompt_at_start) so the model opens the chat, or
// shows the welcome message.
func (d *Driver) Begin() {
	if d.history.Len() > 0 {
		return
	}
	if d.settings.Bool(settings.AutoPromptAtStart, false) {
		d.reprompt.TrySet(1, true)
		return
	}
	if d.opts.WelcomeMessage != "" {
		d.Deliver(models.TextResult(d.opts.WelcomeMessage))
	}
}

// RunTurn runs one turn for input, which is empty for automatic turns.
//
// Every failure inside an attempt (model call, parse, dispatch) is recorded
// as "Execution Attempt N failed: ..." so the model sees it on the next
// try. After MaxAttempts failures the sink is alerted and *TurnFailedError
// is returned.
func (d *Driver) RunTurn(ctx context.Context, input string) error {
	if input != "" {
		d.history.Append(models.RoleUser, input, nil)
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		d.logger.Warn("Turn attempt failed", "attempt", attempt, "error", err)
		d.Deliver(models.TextResult(fmt.Sprintf("%s %d failed: %v", history.AttemptFailurePrefix, attempt, err)))
	}

	d.logger.Error("All turn attempts failed", "attempts", MaxAttempts, "error", lastErr)
	d.sink.Alert(FinalFailureMessage)
	return &TurnFailedError{Attempts: MaxAttempts, Last: lastErr}
}

func (d *Driver) attempt(ctx context.Context) error {
	model, err := d.models.Current()
	if err != nil {
		return err
	}
	raw, err := model.Invoke(ctx, d.ComposePrompt(""))
	if err != nil {
		return err
	}
	d.history.Append(models.RoleAssistant, raw, nil)

	call, err := ParseToolCall(raw)
	if err != nil {
		return err
	}
	d.logger.Debug("Model selected tool", "tool", d.dispatcher.Target(call), "model", model.Name())

	result, err := d.dispatcher.Dispatch(ctx, call)
	if err != nil {
		return err
	}
	d.Deliver(result)
	return nil
}

// Deliver records an assistant result and hands it to the sink. When the
// result has side data but no text, a private note precedes it so the
// model knows the action succeeded. Installed as the chat callback.
func (d *Driver) Deliver(result *models.ToolResult) {
	if result == nil {
		return
	}
	if strings.TrimSpace(result.Message) == "" && result.HasData() {
		d.history.Append(models.RoleAssistant, PrivateNote, nil)
	}
	msg := d.history.Append(models.RoleAssistant, result.Message, result.Data)
	d.sink.Render(msg)
}

// Poll runs one automatic turn if the re-prompt counter is armed and
// auto_prompt is enabled. Hosts call it after every turn and render cycle.
// Returns whether a turn ran.
func (d *Driver) Poll(ctx context.Context) (bool, error) {
	if !d.settings.Bool(settings.AutoPrompt, true) {
		return false, nil
	}
	if !d.reprompt.ConsumeIfPending() {
		return false, nil
	}
	d.logger.Debug("Running automatic turn", "remaining", d.reprompt.Pending())
	return true, d.RunTurn(ctx, "")
}

// History returns the driver's history store.
func (d *Driver) History() history.Store {
	return d.history
}

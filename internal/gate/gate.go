// Package gate interposes a human confirmation step in front of tools that
// run code or shell commands.
//
// A gated request ends in one of three states:
//
//   - blocked: the kind's allow flag is off, nothing runs
//   - direct: allowed without confirmation, the executor runs now
//   - pending: allowed with confirmation, a PendingAction is stored and the
//     executor runs later when Resolve is called
//
// The pending record holds only the executor kind and payload, so it can be
// persisted and resolved from a different process.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/reprompt"
	"github.com/mfateev/toolchat/internal/settings"
)

// Messages returned to the model or delivered to the chat.
const (
	WaitingMessage = "Waiting for you to allow or deny code execution."
	DeniedMessage  = "User denied execution"
	ExpiredMessage = "Execution request expired before confirmation"
	BusyMessage    = "Another execution is still waiting for confirmation. Ask the user to allow or deny it first."
)

// ErrNoPendingAction is returned by Resolve when nothing awaits a decision.
var ErrNoPendingAction = errors.New("no pending action")

// Request is what an executor receives.
type Request struct {
	Kind     string
	Payload  string
	Reprompt *reprompt.Counter
}

// ExecuteFunc runs a gated payload.
type ExecuteFunc func(ctx context.Context, req Request) (*models.ToolResult, error)

type executor struct {
	allowKey string
	run      ExecuteFunc
}

// Gate holds the executors and the single pending action for one session.
type Gate struct {
	mu        sync.Mutex
	settings  *settings.Store
	reprompt  *reprompt.Counter
	logger    logging.Logger
	executors map[string]executor
	pending   *models.PendingAction

	now   func() time.Time
	newID func() string
}

// New creates a gate bound to a session's settings and re-prompt counter.
func New(store *settings.Store, counter *reprompt.Counter, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{
		settings:  store,
		reprompt:  counter,
		logger:    logger,
		executors: make(map[string]executor),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Register binds an executor to kind. allowKey names the boolean setting
// that must be true for the kind to run at all.
func (g *Gate) Register(kind, allowKey string, run ExecuteFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.executors[kind] = executor{allowKey: allowKey, run: run}
}

// BlockedMessage is returned when kind's allow flag is off.
func BlockedMessage(allowKey string) string {
	return fmt.Sprintf("Execution was not allowed, you need to enable %s via settings", allowKey)
}

// Check runs or defers a gated request. In the direct state executor
// errors are returned wrapped in *ExecutionError; in the pending state the
// waiting message is returned immediately.
func (g *Gate) Check(ctx context.Context, kind, payload string) (*models.ToolResult, error) {
	g.mu.Lock()
	ex, ok := g.executors[kind]
	if !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("no executor registered for %q", kind)
	}

	if !g.settings.Bool(ex.allowKey, false) {
		g.mu.Unlock()
		g.logger.Info("Gated execution blocked", "kind", kind, "allow_key", ex.allowKey)
		return models.TextResult(BlockedMessage(ex.allowKey)), nil
	}

	if g.settings.Bool(settings.PresentExecDialog, false) {
		defer g.mu.Unlock()
		if g.pending.Unresolved() {
			g.logger.Warn("Gated execution refused, confirmation outstanding",
				"kind", kind, "pending_id", g.pending.ID)
			return models.TextResult(BusyMessage), nil
		}
		g.pending = &models.PendingAction{
			ID:         g.newID(),
			Kind:       kind,
			AllowKey:   ex.allowKey,
			Payload:    payload,
			Resolution: models.ResolutionUnresolved,
			CreatedAt:  g.now(),
		}
		g.logger.Info("Gated execution pending confirmation", "kind", kind, "pending_id", g.pending.ID)
		return models.TextResult(WaitingMessage), nil
	}
	g.mu.Unlock()

	g.logger.Debug("Gated execution running", "kind", kind)
	result, err := ex.run(ctx, Request{Kind: kind, Payload: payload, Reprompt: g.reprompt})
	if err != nil {
		return nil, &ExecutionError{Kind: kind, Cause: err}
	}
	return result, nil
}

// Pending returns a copy of the unresolved pending action, if any.
func (g *Gate) Pending() (models.PendingAction, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.pending.Unresolved() {
		return models.PendingAction{}, false
	}
	return *g.pending, true
}

// Resolve applies the user's decision to the pending action.
//
// Approve runs the executor once with the stored payload. An executor error
// becomes "Execution failed: ..." and schedules one re-prompt. Deny never
// runs the executor. The outcome is delivered through the chat callback
// setting and also returned.
func (g *Gate) Resolve(ctx context.Context, decision models.Decision) (*models.ToolResult, error) {
	g.mu.Lock()
	if !g.pending.Unresolved() {
		g.mu.Unlock()
		return nil, ErrNoPendingAction
	}
	action := g.pending
	ex, ok := g.executors[action.Kind]

	var result *models.ToolResult
	switch decision {
	case models.DecisionApprove:
		action.Resolution = models.ResolutionApproved
	case models.DecisionDeny:
		action.Resolution = models.ResolutionDenied
	default:
		g.mu.Unlock()
		return nil, fmt.Errorf("unknown decision %q", decision)
	}
	g.mu.Unlock()

	g.logger.Info("Pending action resolved", "pending_id", action.ID, "resolution", action.Resolution)

	if decision == models.DecisionDeny {
		result = models.TextResult(DeniedMessage)
	} else {
		if !ok {
			result = models.TextResult(fmt.Sprintf("Execution failed: no executor registered for %q", action.Kind))
			g.reprompt.TrySet(1, false)
		} else {
			out, err := ex.run(ctx, Request{Kind: action.Kind, Payload: action.Payload, Reprompt: g.reprompt})
			if err != nil {
				result = models.TextResult(fmt.Sprintf("Execution failed: %v", err))
				g.reprompt.TrySet(1, false)
			} else {
				result = out
			}
		}
	}

	g.deliver(result)
	return result, nil
}

// ExpireStale resolves an unresolved action older than the configured
// exec_confirm_timeout as expired. Returns true if one was expired. A zero
// or absent timeout disables expiry.
func (g *Gate) ExpireStale(now time.Time) bool {
	ttl := g.timeout()
	if ttl <= 0 {
		return false
	}

	g.mu.Lock()
	if !g.pending.Unresolved() || now.Sub(g.pending.CreatedAt) < ttl {
		g.mu.Unlock()
		return false
	}
	g.pending.Resolution = models.ResolutionExpired
	id := g.pending.ID
	g.mu.Unlock()

	g.logger.Info("Pending action expired", "pending_id", id, "timeout", ttl)
	g.deliver(models.TextResult(ExpiredMessage))
	return true
}

// Snapshot returns the last pending action record, resolved or not.
func (g *Gate) Snapshot() *models.PendingAction {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	cp := *g.pending
	return &cp
}

// Restore replaces the pending action record.
func (g *Gate) Restore(action *models.PendingAction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if action == nil {
		g.pending = nil
		return
	}
	cp := *action
	g.pending = &cp
}

func (g *Gate) deliver(result *models.ToolResult) {
	cb := g.settings.Callback()
	if cb == nil {
		g.logger.Error("No chat callback installed, outcome not delivered", "message", result.Message)
		return
	}
	cb(result)
}

func (g *Gate) timeout() time.Duration {
	v, ok := g.settings.Get(settings.ExecConfirmTimeout)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case time.Duration:
		return t
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			g.logger.Warn("Invalid exec_confirm_timeout", "value", t, "error", err)
			return 0
		}
		return d
	}
	return 0
}

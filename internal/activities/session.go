// Package activities contains the Temporal activities behind ChatWorkflow.
//
// The workflow holds only serializable session state. Each activity
// rebuilds a session from its snapshot, does one unit of work (a turn, a
// confirmation), and hands the new snapshot back.
package activities

import (
	"context"
	"errors"
	"sync"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/session"
)

// Application error types returned by these activities.
const (
	ErrTypeNoPendingAction = "NoPendingAction"
	ErrTypeSession         = "SessionError"
)

// ProviderFunc builds a model provider for a configuration.
type ProviderFunc func(ctx context.Context, cfg models.ModelConfig) (llm.Provider, error)

// SessionRequest carries the state every session activity needs.
type SessionRequest struct {
	Snapshot session.Snapshot     `json:"snapshot"`
	Model    models.ModelConfig   `json:"model"`
	Prompts  conversation.Options `json:"prompts"`
}

// TurnInput is the input for RunTurn. An empty Input with Auto set runs
// an automatic follow-up turn if one is armed.
type TurnInput struct {
	SessionRequest
	Input string `json:"input,omitempty"`
	Auto  bool   `json:"auto,omitempty"`
}

// ApprovalInput is the input for ResolveApproval.
type ApprovalInput struct {
	SessionRequest
	Decision models.Decision `json:"decision"`
}

// SessionOutput is what every session activity returns.
type SessionOutput struct {
	Snapshot session.Snapshot `json:"snapshot"`

	// Ran is false when an automatic turn found nothing armed.
	Ran bool `json:"ran"`
	// Failed is set when the turn used up its attempts.
	Failed bool `json:"failed,omitempty"`
	// Expired is set when the pending confirmation timed out first.
	Expired bool `json:"expired,omitempty"`

	// Outcome is the text of a resolved confirmation.
	Outcome string   `json:"outcome,omitempty"`
	Alerts  []string `json:"alerts,omitempty"`
}

// SessionActivities runs session work for ChatWorkflow.
type SessionActivities struct {
	providers ProviderFunc

	mu     sync.Mutex
	caches map[models.ModelConfig]*llm.ModelCache
}

// NewSessionActivities creates the activities. A nil providers uses
// llm.NewProvider.
func NewSessionActivities(providers ProviderFunc) *SessionActivities {
	if providers == nil {
		providers = llm.NewProvider
	}
	return &SessionActivities{
		providers: providers,
		caches:    make(map[models.ModelConfig]*llm.ModelCache),
	}
}

// cacheFor returns the model cache shared by every configuration that
// differs only in model name.
func (a *SessionActivities) cacheFor(ctx context.Context, cfg models.ModelConfig) (*llm.ModelCache, error) {
	key := cfg
	key.Model = ""

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.caches[key]; ok {
		return c, nil
	}
	p, err := a.providers(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := llm.NewModelCache(p, cfg.Model)
	a.caches[key] = c
	return c, nil
}

type activityModels struct {
	ctx context.Context
	a   *SessionActivities
	cfg models.ModelConfig
}

func (m activityModels) Current() (llm.Model, error) {
	c, err := m.a.cacheFor(m.ctx, m.cfg)
	if err != nil {
		return nil, err
	}
	return c.Load(m.cfg.Model)
}

// restore rebuilds the session and collects sink alerts into out.
func (a *SessionActivities) restore(ctx context.Context, req SessionRequest, out *SessionOutput) *session.Session {
	return session.Restore(req.Snapshot, session.Options{
		Models:  activityModels{ctx: ctx, a: a, cfg: req.Model},
		Prompts: req.Prompts,
		Logger:  activity.GetLogger(ctx),
		Sink: conversation.SinkFuncs{
			OnAlert: func(text string) { out.Alerts = append(out.Alerts, text) },
		},
	})
}

// BeginSession runs the start-of-session step: welcome message and the
// optional automatic first turn.
func (a *SessionActivities) BeginSession(ctx context.Context, req SessionRequest) (SessionOutput, error) {
	var out SessionOutput
	s := a.restore(ctx, req, &out)
	s.Driver.Begin()
	out.Snapshot = s.Snapshot()
	out.Ran = true
	return out, nil
}

// RunTurn runs one user turn, or one automatic turn when in.Auto is set.
// A turn that exhausts its attempts is a normal outcome, not an activity
// failure.
func (a *SessionActivities) RunTurn(ctx context.Context, in TurnInput) (SessionOutput, error) {
	logger := activity.GetLogger(ctx)
	var out SessionOutput
	s := a.restore(ctx, in.SessionRequest, &out)

	var err error
	if in.Auto {
		out.Ran, err = s.Poll(ctx)
	} else {
		s.ExpireStale()
		err = s.Submit(ctx, in.Input)
		out.Ran = true
	}
	if err != nil {
		if !conversation.IsTurnFailedError(err) {
			return SessionOutput{}, temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeSession, err)
		}
		logger.Warn("Turn failed", "session_id", s.ID, "error", err)
		out.Failed = true
	}
	out.Snapshot = s.Snapshot()
	return out, nil
}

// ResolveApproval applies the user's decision to the pending confirmation.
// Approval runs the gated command inside this activity.
func (a *SessionActivities) ResolveApproval(ctx context.Context, in ApprovalInput) (SessionOutput, error) {
	var out SessionOutput
	s := a.restore(ctx, in.SessionRequest, &out)

	if s.ExpireStale() {
		out.Expired = true
		out.Outcome = gate.ExpiredMessage
		out.Snapshot = s.Snapshot()
		return out, nil
	}

	res, err := s.Resolve(ctx, in.Decision)
	if err != nil {
		if errors.Is(err, gate.ErrNoPendingAction) {
			return SessionOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoPendingAction, err)
		}
		return SessionOutput{}, temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeSession, err)
	}
	out.Ran = true
	out.Outcome = res.Message
	out.Snapshot = s.Snapshot()
	return out, nil
}

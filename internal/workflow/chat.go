package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mfateev/toolchat/internal/activities"
	"github.com/mfateev/toolchat/internal/models"
)

// Activity names as registered by the worker.
const (
	activityBeginSession    = "BeginSession"
	activityRunTurn         = "RunTurn"
	activityResolveApproval = "ResolveApproval"
	activityListModels      = "ListModels"
)

// sessionActivityOptions runs session work at most once. The driver already
// retries model calls within a turn, and gated commands must not run twice.
var sessionActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 10 * time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		MaximumAttempts: 1,
	},
}

var listModelsActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 30 * time.Second,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    10 * time.Second,
		MaximumAttempts:    3,
	},
}

// ChatWorkflow hosts one chat session. It waits for user input, runs each
// turn as an activity, follows armed re-prompts automatically, and applies
// confirmation decisions. After MaxTurns turns it continues as new with
// the session snapshot.
func ChatWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	s := newSessionState(input)
	s.registerHandlers(ctx)

	if input.Snapshot == nil {
		if err := s.begin(ctx); err != nil {
			return WorkflowResult{}, err
		}
	}
	return s.run(ctx)
}

func (s *SessionState) request() activities.SessionRequest {
	return activities.SessionRequest{
		Snapshot: s.Snapshot,
		Model:    s.Model,
		Prompts:  s.Prompts,
	}
}

// apply takes an activity's snapshot. Settings are owned by the workflow,
// so updates that landed while the activity ran are kept.
func (s *SessionState) apply(out activities.SessionOutput) {
	cur := s.Snapshot.Settings
	s.Snapshot = out.Snapshot
	s.Snapshot.Settings = cur
	s.alerts = out.Alerts
}

func (s *SessionState) begin(ctx workflow.Context) error {
	actCtx := workflow.WithActivityOptions(ctx, sessionActivityOptions)
	var out activities.SessionOutput
	if err := workflow.ExecuteActivity(actCtx, activityBeginSession, s.request()).Get(ctx, &out); err != nil {
		return err
	}
	s.apply(out)
	return nil
}

func (s *SessionState) run(ctx workflow.Context) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	for {
		s.phase = s.idlePhase()
		err := workflow.Await(ctx, func() bool {
			return s.shutdown || s.clear || s.decision != nil || len(s.inputs) > 0 || s.autoTurnArmed()
		})
		if err != nil {
			return WorkflowResult{}, err
		}

		switch {
		case s.clear:
			s.clearHistory(ctx)
		case s.decision != nil:
			s.resolve(ctx)
		case s.shutdown:
			logger.Info("Session shutting down", "turns", s.TurnCount)
			return WorkflowResult{SessionID: s.SessionID, TurnCount: s.TurnCount, EndReason: "shutdown"}, nil
		case len(s.inputs) > 0:
			next := s.inputs[0]
			s.inputs = s.inputs[1:]
			s.runTurn(ctx, activities.TurnInput{SessionRequest: s.request(), Input: next})
		default:
			s.runTurn(ctx, activities.TurnInput{SessionRequest: s.request(), Auto: true})
		}

		if s.TurnCount >= s.MaxTurns && s.quiet() {
			if err := workflow.Await(ctx, func() bool { return workflow.AllHandlersFinished(ctx) }); err != nil {
				return WorkflowResult{}, err
			}
			logger.Info("Turn limit reached, continuing as new", "turns", s.TurnCount)
			snap := s.Snapshot
			return WorkflowResult{}, workflow.NewContinueAsNewError(ctx, ChatWorkflow, WorkflowInput{
				SessionID: s.SessionID,
				Model:     s.Model,
				Prompts:   s.Prompts,
				MaxTurns:  s.MaxTurns,
				Snapshot:  &snap,
			})
		}
	}
}

// quiet reports whether nothing is queued for the loop.
func (s *SessionState) quiet() bool {
	return len(s.inputs) == 0 && s.decision == nil && !s.clear && !s.shutdown && !s.autoTurnArmed()
}

func (s *SessionState) runTurn(ctx workflow.Context, in activities.TurnInput) {
	logger := workflow.GetLogger(ctx)
	s.phase = PhaseRunningTurn

	actCtx := workflow.WithActivityOptions(ctx, sessionActivityOptions)
	var out activities.SessionOutput
	if err := workflow.ExecuteActivity(actCtx, activityRunTurn, in).Get(ctx, &out); err != nil {
		logger.Error("Turn activity failed", "auto", in.Auto, "error", err)
		s.lastError = err.Error()
		// Drop armed re-prompts so a failing activity is not retried forever.
		s.Snapshot.RepromptCount = 0
		return
	}
	s.apply(out)
	s.lastError = ""
	if out.Ran {
		s.TurnCount++
	}
	if out.Failed {
		logger.Warn("Turn used up its attempts", "turn", s.TurnCount)
	}
}

func (s *SessionState) resolve(ctx workflow.Context) {
	logger := workflow.GetLogger(ctx)
	s.phase = PhaseResolving
	decision := *s.decision

	actCtx := workflow.WithActivityOptions(ctx, sessionActivityOptions)
	var out activities.SessionOutput
	err := workflow.ExecuteActivity(actCtx, activityResolveApproval, activities.ApprovalInput{
		SessionRequest: s.request(),
		Decision:       decision,
	}).Get(ctx, &out)
	if err != nil {
		logger.Error("Resolve activity failed", "decision", decision, "error", err)
		s.lastError = err.Error()
		s.outcome = ApprovalResult{Message: "Execution failed: " + err.Error()}
	} else {
		s.apply(out)
		s.lastError = ""
		s.outcome = ApprovalResult{Message: out.Outcome, Expired: out.Expired}
	}
	s.decision = nil
}

func (s *SessionState) clearHistory(ctx workflow.Context) {
	s.Snapshot.Messages = nil
	s.Snapshot.RepromptCount = 0
	s.alerts = nil
	s.clear = false
	workflow.GetLogger(ctx).Info("History cleared")
}

func listModels(ctx workflow.Context, cfg models.ModelConfig) ([]string, error) {
	actCtx := workflow.WithActivityOptions(ctx, listModelsActivityOptions)
	var names []string
	err := workflow.ExecuteActivity(actCtx, activityListModels, cfg).Get(ctx, &names)
	return names, err
}


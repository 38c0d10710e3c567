package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/settings"
)

type scriptedModel struct {
	name    string
	replies []string
}

func (m *scriptedModel) Name() string { return m.name }

func (m *scriptedModel) Invoke(context.Context, llm.Prompt) (string, error) {
	if len(m.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next, nil
}

type fakeProvider struct {
	model  *scriptedModel
	names  []string
	err    error
	builds int
}

func (p *fakeProvider) ListModels(context.Context) ([]string, error) { return p.names, p.err }

func (p *fakeProvider) Model(name string) (llm.Model, error) {
	p.model.name = name
	return p.model, nil
}

func newActivities(p *fakeProvider) *SessionActivities {
	return NewSessionActivities(func(context.Context, models.ModelConfig) (llm.Provider, error) {
		p.builds++
		return p, nil
	})
}

func newEnv(a *SessionActivities) *testsuite.TestActivityEnvironment {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)
	return env
}

func request(settingsMap map[string]any) SessionRequest {
	return SessionRequest{
		Snapshot: session.Snapshot{ID: "s-1", Settings: settingsMap},
		Model:    models.DefaultModelConfig(),
		Prompts:  conversation.Options{WelcomeMessage: conversation.DefaultWelcome},
	}
}

func TestBeginSession(t *testing.T) {
	a := newActivities(&fakeProvider{model: &scriptedModel{}})
	env := newEnv(a)

	val, err := env.ExecuteActivity(a.BeginSession, request(map[string]any{settings.AutoPromptAtStart: true}))
	require.NoError(t, err)
	var out SessionOutput
	require.NoError(t, val.Get(&out))

	assert.Empty(t, out.Snapshot.Messages)
	assert.Equal(t, 1, out.Snapshot.RepromptCount)

	val, err = env.ExecuteActivity(a.BeginSession, request(nil))
	require.NoError(t, err)
	var welcomed SessionOutput
	require.NoError(t, val.Get(&welcomed))
	require.Len(t, welcomed.Snapshot.Messages, 1)
	assert.Equal(t, conversation.DefaultWelcome, welcomed.Snapshot.Messages[0].Content)
	assert.Equal(t, 0, welcomed.Snapshot.RepromptCount)
}

func TestRunTurn(t *testing.T) {
	p := &fakeProvider{model: &scriptedModel{replies: []string{`{"tool": "converse", "args": {"response": "hello"}}`}}}
	a := newActivities(p)
	env := newEnv(a)

	val, err := env.ExecuteActivity(a.RunTurn, TurnInput{SessionRequest: request(nil), Input: "hi"})
	require.NoError(t, err)
	var out SessionOutput
	require.NoError(t, val.Get(&out))

	assert.True(t, out.Ran)
	assert.False(t, out.Failed)
	msgs := out.Snapshot.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[2].Content)
	assert.Equal(t, models.DefaultModelConfig().Model, p.model.name)
}

func TestRunTurnFailureIsNotAnActivityError(t *testing.T) {
	a := newActivities(&fakeProvider{model: &scriptedModel{}})
	env := newEnv(a)

	val, err := env.ExecuteActivity(a.RunTurn, TurnInput{SessionRequest: request(nil), Input: "hi"})
	require.NoError(t, err)
	var out SessionOutput
	require.NoError(t, val.Get(&out))

	assert.True(t, out.Failed)
	assert.Equal(t, []string{conversation.FinalFailureMessage}, out.Alerts)
}

func TestRunTurnAutoWithNothingArmed(t *testing.T) {
	a := newActivities(&fakeProvider{model: &scriptedModel{}})
	env := newEnv(a)

	val, err := env.ExecuteActivity(a.RunTurn, TurnInput{SessionRequest: request(nil), Auto: true})
	require.NoError(t, err)
	var out SessionOutput
	require.NoError(t, val.Get(&out))
	assert.False(t, out.Ran)
}

func TestResolveApproval(t *testing.T) {
	p := &fakeProvider{model: &scriptedModel{replies: []string{`{"tool": "shell_exec", "args": {"command": "echo ok"}}`}}}
	a := newActivities(p)
	env := newEnv(a)
	req := request(map[string]any{settings.AllowShellExec: true, settings.PresentExecDialog: true})

	val, err := env.ExecuteActivity(a.RunTurn, TurnInput{SessionRequest: req, Input: "run"})
	require.NoError(t, err)
	var turn SessionOutput
	require.NoError(t, val.Get(&turn))
	require.NotNil(t, turn.Snapshot.Pending)
	assert.Equal(t, models.ResolutionUnresolved, turn.Snapshot.Pending.Resolution)

	req.Snapshot = turn.Snapshot
	val, err = env.ExecuteActivity(a.ResolveApproval, ApprovalInput{SessionRequest: req, Decision: models.DecisionApprove})
	require.NoError(t, err)
	var out SessionOutput
	require.NoError(t, val.Get(&out))

	assert.Equal(t, "ok\n", out.Outcome)
	assert.Equal(t, models.ResolutionApproved, out.Snapshot.Pending.Resolution)
	last := out.Snapshot.Messages[len(out.Snapshot.Messages)-1]
	assert.Equal(t, "ok\n", last.Content)
}

func TestResolveApprovalWithoutPending(t *testing.T) {
	a := newActivities(&fakeProvider{model: &scriptedModel{}})
	env := newEnv(a)

	_, err := env.ExecuteActivity(a.ResolveApproval, ApprovalInput{SessionRequest: request(nil), Decision: models.DecisionDeny})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeNoPendingAction, appErr.Type())
}

func TestResolveApprovalExpired(t *testing.T) {
	a := newActivities(&fakeProvider{model: &scriptedModel{}})
	env := newEnv(a)
	req := request(map[string]any{settings.ExecConfirmTimeout: "1ns"})
	req.Snapshot.Pending = &models.PendingAction{
		ID:         "p-1",
		Kind:       "shell",
		Payload:    "echo late",
		Resolution: models.ResolutionUnresolved,
	}

	val, err := env.ExecuteActivity(a.ResolveApproval, ApprovalInput{SessionRequest: req, Decision: models.DecisionApprove})
	require.NoError(t, err)
	var out SessionOutput
	require.NoError(t, val.Get(&out))

	assert.True(t, out.Expired)
	assert.Equal(t, gate.ExpiredMessage, out.Outcome)
	assert.Equal(t, models.ResolutionExpired, out.Snapshot.Pending.Resolution)
}

func TestListModelsSharesProvider(t *testing.T) {
	p := &fakeProvider{model: &scriptedModel{}, names: []string{"a", "b"}}
	a := newActivities(p)
	env := newEnv(a)

	cfg := models.DefaultModelConfig()
	val, err := env.ExecuteActivity(a.ListModels, cfg)
	require.NoError(t, err)
	var names []string
	require.NoError(t, val.Get(&names))
	assert.Equal(t, []string{"a", "b"}, names)

	cfg.Model = "other"
	_, err = env.ExecuteActivity(a.ListModels, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, p.builds)
}

func TestListModelsTransportError(t *testing.T) {
	p := &fakeProvider{model: &scriptedModel{}, err: models.NewFatalError("bad key")}
	a := newActivities(p)
	env := newEnv(a)

	_, err := env.ExecuteActivity(a.ListModels, models.DefaultModelConfig())
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrorTypeFatal.String(), appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

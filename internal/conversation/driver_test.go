package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/history"
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/reprompt"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
	"github.com/mfateev/toolchat/internal/tools/handlers"
)

// scriptedModel returns one scripted reply per call. An error entry makes
// that call fail.
type scriptedModel struct {
	replies []any
	prompts []llm.Prompt
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Invoke(_ context.Context, prompt llm.Prompt) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	switch v := next.(type) {
	case error:
		return "", v
	case string:
		return v, nil
	}
	panic("bad script entry")
}

type harness struct {
	driver   *Driver
	model    *scriptedModel
	history  *history.InMemoryHistory
	settings *settings.Store
	counter  *reprompt.Counter
	gate     *gate.Gate
	rendered []models.Message
	alerts   []string
	log      *logging.Recorder
}

func newHarness(t *testing.T, replies ...any) *harness {
	t.Helper()
	h := &harness{
		model:    &scriptedModel{replies: replies},
		history:  history.NewInMemoryHistory(),
		settings: settings.New(),
		counter:  reprompt.New(),
		log:      &logging.Recorder{},
	}
	h.gate = gate.New(h.settings, h.counter, h.log)
	registry := tools.NewRegistry(h.log)
	handlers.Install(registry, h.gate)
	h.settings.Set(settings.DefaultTool, tools.DefaultToolName)

	h.driver = New(Deps{
		Models:     FixedModel(h.model),
		Dispatcher: tools.NewDispatcher(registry, h.settings, h.counter, h.gate, h.log),
		History:    h.history,
		Settings:   h.settings,
		Reprompt:   h.counter,
		Sink: SinkFuncs{
			OnRender: func(m models.Message) { h.rendered = append(h.rendered, m) },
			OnAlert:  func(s string) { h.alerts = append(h.alerts, s) },
		},
		Logger: h.log,
	}, Options{PurposePrompt: "Be helpful.", EnvironmentPrompt: "env", WelcomeMessage: DefaultWelcome})
	h.settings.Set(settings.ChatCallback, settings.ChatCallbackFunc(h.driver.Deliver))
	return h
}

func converse(text string) string {
	return `{"tool": "converse", "args": {"response": "` + text + `"}}`
}

func attemptFailures(msgs []models.Message) []string {
	var out []string
	for _, m := range msgs {
		if strings.HasPrefix(m.Content, history.AttemptFailurePrefix) {
			out = append(out, m.Content)
		}
	}
	return out
}

func TestRunTurn_Success(t *testing.T) {
	h := newHarness(t, converse("Hi there"))

	require.NoError(t, h.driver.RunTurn(context.Background(), "hello"))

	msgs := h.history.List()
	require.Len(t, msgs, 3)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, converse("Hi there"), msgs[1].Content, "raw tool call stays in model history")
	assert.Equal(t, "Hi there", msgs[2].Content)

	require.Len(t, h.rendered, 1)
	assert.Equal(t, "Hi there", h.rendered[0].Content)
	assert.Empty(t, h.alerts)
}

func TestRunTurn_AlwaysFailingModel(t *testing.T) {
	boom := errors.New("connection refused")
	h := newHarness(t, boom, boom, boom, converse("never reached"))

	err := h.driver.RunTurn(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, IsTurnFailedError(err))
	assert.ErrorIs(t, err, boom)

	failures := attemptFailures(h.history.List())
	assert.Equal(t, []string{
		"Execution Attempt 1 failed: connection refused",
		"Execution Attempt 2 failed: connection refused",
		"Execution Attempt 3 failed: connection refused",
	}, failures)
	assert.Equal(t, []string{FinalFailureMessage}, h.alerts)
	assert.Len(t, h.model.prompts, 3)
	assert.True(t, h.log.Has("WARN", "Turn attempt failed"))
}

func TestRunTurn_FailsTwiceThenSucceeds(t *testing.T) {
	h := newHarness(t, errors.New("timeout"), "not json at all", converse("third time"))

	require.NoError(t, h.driver.RunTurn(context.Background(), "hello"))

	msgs := h.history.List()
	assert.Len(t, attemptFailures(msgs), 2)
	assert.Equal(t, "third time", msgs[len(msgs)-1].Content)
	assert.Empty(t, h.alerts)

	var contents []string
	for _, m := range h.rendered {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{
		"Execution Attempt 1 failed: timeout",
		`Execution Attempt 2 failed: invalid json output: "not json at all"`,
		"third time",
	}, contents)
}

func TestRunTurn_RetryPromptIncludesEarlierFailure(t *testing.T) {
	h := newHarness(t, `{"tool": "nonexistent", "args": {}}`, converse("ok"))

	require.NoError(t, h.driver.RunTurn(context.Background(), "hello"))

	require.Len(t, h.model.prompts, 2)
	second := h.model.prompts[1]
	last := second[len(second)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Equal(t, "Execution Attempt 1 failed: tool nonexistent not found", last.Content)
}

func TestRunTurn_UserInputRecordedOnce(t *testing.T) {
	h := newHarness(t, errors.New("x"), converse("ok"))
	require.NoError(t, h.driver.RunTurn(context.Background(), "hello"))

	count := 0
	for _, m := range h.history.List() {
		if m.Role == models.RoleUser {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestComposePrompt_Order(t *testing.T) {
	h := newHarness(t)
	h.history.Append(models.RoleAssistant, DefaultWelcome, nil)

	p := h.driver.ComposePrompt("what now?")
	require.Len(t, p, 6)
	assert.Contains(t, p[0].Content, "converse(response: string)")
	assert.Equal(t, OutputFormatInstructions, p[1].Content)
	assert.Equal(t, "env", p[2].Content)
	assert.Equal(t, "Be helpful.", p[3].Content)
	for i := 0; i < 4; i++ {
		assert.Equal(t, models.RoleSystem, p[i].Role)
	}
	assert.Equal(t, DefaultWelcome, p[4].Content)
	assert.Equal(t, llm.Message{Role: models.RoleUser, Content: "what now?"}, p[5])

	assert.Len(t, h.driver.ComposePrompt(""), 5, "empty input is omitted")
}

func TestDeliver_PrivateNoteForDataOnlyResults(t *testing.T) {
	h := newHarness(t)
	h.driver.Deliver(&models.ToolResult{Data: map[string]any{"return_object": "chart"}})

	msgs := h.history.List()
	require.Len(t, msgs, 2)
	assert.Equal(t, PrivateNote, msgs[0].Content)
	assert.Equal(t, "chart", msgs[1].SideData["return_object"])

	visible := history.Visible(msgs, false)
	require.Len(t, visible, 1, "private note is hidden from display")

	require.Len(t, h.rendered, 1)
}

func TestDeliver_NoNoteForTextResults(t *testing.T) {
	h := newHarness(t)
	h.driver.Deliver(models.TextResult("plain"))
	assert.Equal(t, 1, h.history.Len())
}

func TestPoll_RunsExactlyArmedTurns(t *testing.T) {
	h := newHarness(t, converse("one"), converse("two"), converse("three"))
	ctx := context.Background()

	ran, err := h.driver.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, ran, "nothing armed")

	h.counter.TrySet(2, false)
	for i := 0; i < 2; i++ {
		ran, err = h.driver.Poll(ctx)
		require.NoError(t, err)
		assert.True(t, ran)
	}
	ran, err = h.driver.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Len(t, h.model.prompts, 2)

	for _, m := range h.history.List() {
		assert.NotEqual(t, models.RoleUser, m.Role, "automatic turns add no user entries")
	}
}

func TestPoll_DisabledByAutoPromptSetting(t *testing.T) {
	h := newHarness(t, converse("x"))
	h.settings.Set(settings.AutoPrompt, false)
	h.counter.TrySet(1, false)

	ran, err := h.driver.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, h.counter.Pending())
}

func TestPoll_EmptyCodeOutputTriggersFollowUp(t *testing.T) {
	h := newHarness(t,
		`{"tool": "python_exec", "args": {"code": "x = 1"}}`,
		converse("I set x to 1."),
	)
	h.settings.Set(settings.AllowPythonExec, true)
	ctx := context.Background()

	require.NoError(t, h.driver.RunTurn(ctx, "set x"))
	assert.Equal(t, 1, h.counter.Pending())

	ran, err := h.driver.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	msgs := h.history.List()
	assert.Equal(t, "I set x to 1.", msgs[len(msgs)-1].Content)

	ran, _ = h.driver.Poll(ctx)
	assert.False(t, ran)
}

func TestConfirmFlowThroughCallback(t *testing.T) {
	h := newHarness(t, `{"tool": "shell_exec", "args": {"command": "echo approved"}}`)
	h.settings.SetAll(map[string]any{settings.AllowShellExec: true, settings.PresentExecDialog: true})
	ctx := context.Background()

	require.NoError(t, h.driver.RunTurn(ctx, "run echo"))
	msgs := h.history.List()
	assert.Equal(t, gate.WaitingMessage, msgs[len(msgs)-1].Content)

	_, err := h.gate.Resolve(ctx, models.DecisionApprove)
	require.NoError(t, err)
	msgs = h.history.List()
	assert.Equal(t, "approved\n", msgs[len(msgs)-1].Content)
}

func TestBegin_AutoPromptReplacesWelcome(t *testing.T) {
	h := newHarness(t)
	h.settings.Set(settings.AutoPromptAtStart, true)
	h.driver.Begin()

	assert.Equal(t, 0, h.history.Len(), "the automatic turn opens the chat instead of the welcome")
	assert.Equal(t, 1, h.counter.Pending())
}

func TestBegin_NoAutoPrompt(t *testing.T) {
	h := newHarness(t)
	h.driver.Begin()

	msgs := h.history.List()
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultWelcome, msgs[0].Content)
	assert.Equal(t, 0, h.counter.Pending())

	h.driver.Begin()
	assert.Equal(t, 1, h.history.Len(), "Begin is a no-op on a non-empty history")
}

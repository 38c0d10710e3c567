package cli

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/settings"
)

type scriptedModel struct {
	mu      sync.Mutex
	replies []string
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Invoke(context.Context, llm.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next, nil
}

type fakeCatalog struct {
	current string
	names   []string
}

func (c *fakeCatalog) CurrentName() string { return c.current }

func (c *fakeCatalog) Available(context.Context) ([]string, error) {
	return c.names, nil
}

func (c *fakeCatalog) Load(name string) (llm.Model, error) {
	if name == "missing" {
		return nil, errors.New("model not found")
	}
	c.current = name
	return &scriptedModel{}, nil
}

func converse(text string) string {
	return `{"tool": "converse", "args": {"response": "` + text + `"}}`
}

func newTestModel(t *testing.T, values map[string]any, replies ...string) *Model {
	t.Helper()
	manager := session.NewManager(session.Options{
		Models:   conversation.FixedModel(&scriptedModel{replies: replies}),
		Settings: values,
		Prompts:  conversation.Options{WelcomeMessage: "Welcome!"},
	})
	catalog := &fakeCatalog{current: "scripted", names: []string{"scripted", "other"}}
	m := NewModel(Config{NoColor: true, NoMarkdown: true}, manager, catalog)
	pm := &m
	pm.handleWindowSize(tea.WindowSizeMsg{Width: 100, Height: 30})

	s := manager.Create()
	next, cmd := pm.handleSessionReady(SessionReadyMsg{SessionID: s.ID})
	return drive(next.(*Model), cmd)
}

// drive runs cmd and feeds session results back into the model until the
// chain settles.
func drive(m *Model, cmd tea.Cmd) *Model {
	for i := 0; cmd != nil && i < 20; i++ {
		msg := cmd()
		switch msg.(type) {
		case TurnDoneMsg, ResolvedMsg, ModelsListedMsg, ModelLoadedMsg, SessionReadyMsg:
		default:
			return m
		}
		next, c := m.Update(msg)
		m = next.(*Model)
		cmd = c
	}
	return m
}

func send(m *Model, line string) *Model {
	m.textarea.SetValue(line)
	next, cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter})
	return drive(next.(*Model), cmd)
}

func press(m *Model, msg tea.KeyMsg) *Model {
	next, cmd := m.handleKeyMsg(msg)
	return drive(next.(*Model), cmd)
}

func TestModel_StartupRendersWelcome(t *testing.T) {
	m := newTestModel(t, nil)

	assert.Equal(t, StateInput, m.state)
	require.NotNil(t, m.session)
	assert.Contains(t, m.viewportContent, "Session "+m.session.ID)
	assert.Contains(t, m.viewportContent, "Welcome!")
}

func TestModel_AutoPromptAtStart(t *testing.T) {
	m := newTestModel(t, map[string]any{settings.AutoPromptAtStart: true}, converse("Ask me anything."))

	assert.Equal(t, StateInput, m.state)
	assert.Contains(t, m.viewportContent, "Ask me anything.")
	assert.NotContains(t, m.viewportContent, "Welcome!")
	assert.Equal(t, 1, m.turnCount)
}

func TestModel_SubmitRunsTurn(t *testing.T) {
	m := newTestModel(t, nil, converse("hello back"))

	m = send(m, "hi")

	assert.Equal(t, StateInput, m.state)
	assert.Contains(t, m.viewportContent, "❯ hi")
	assert.Contains(t, m.viewportContent, "hello back")
	assert.NotContains(t, m.viewportContent, `"converse"`)
	assert.Equal(t, 1, m.turnCount)
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	m := newTestModel(t, nil)
	before := m.viewportContent

	m = send(m, "   ")

	assert.Equal(t, StateInput, m.state)
	assert.Equal(t, before, m.viewportContent)
}

func TestModel_DisplayToolCalls(t *testing.T) {
	m := newTestModel(t, nil, converse("visible"))

	m = send(m, "/set display_tools_calls on")
	m = send(m, "hi")

	assert.Contains(t, m.viewportContent, `"converse"`)
}

func TestModel_ConfirmationAllow(t *testing.T) {
	m := newTestModel(t, map[string]any{
		settings.AllowShellExec:    true,
		settings.PresentExecDialog: true,
	}, `{"tool": "shell_exec", "args": {"command": "echo approved"}}`)

	m = send(m, "run it")

	require.Equal(t, StateConfirm, m.state)
	require.NotNil(t, m.selector)
	assert.Contains(t, m.viewportContent, gate.WaitingMessage)
	assert.Contains(t, m.viewportContent, "echo approved")
	assert.Contains(t, m.View(), "Allow")

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	assert.Equal(t, StateInput, m.state)
	assert.Nil(t, m.selector)
	assert.Contains(t, m.viewportContent, "Allowed.")
	assert.Contains(t, m.viewportContent, "approved\n")
	_, pending := m.session.Pending()
	assert.False(t, pending)
}

func TestModel_ConfirmationDenyWithEsc(t *testing.T) {
	m := newTestModel(t, map[string]any{
		settings.AllowShellExec:    true,
		settings.PresentExecDialog: true,
	}, `{"tool": "shell_exec", "args": {"command": "rm -rf /tmp/x"}}`)

	m = send(m, "clean up")
	require.Equal(t, StateConfirm, m.state)

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, StateInput, m.state)
	assert.Contains(t, m.viewportContent, gate.DeniedMessage)
}

func TestModel_InputIgnoredWhileConfirming(t *testing.T) {
	m := newTestModel(t, map[string]any{
		settings.AllowShellExec:    true,
		settings.PresentExecDialog: true,
	}, `{"tool": "shell_exec", "args": {"command": "date"}}`)
	m = send(m, "what time is it")
	require.Equal(t, StateConfirm, m.state)

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})

	assert.Equal(t, StateConfirm, m.state)
	_, pending := m.session.Pending()
	assert.True(t, pending)
}

func TestModel_AutomaticTurnAfterSilentCode(t *testing.T) {
	m := newTestModel(t, map[string]any{settings.AllowPythonExec: true},
		`{"tool": "python_exec", "args": {"code": "x = 1"}}`,
		converse("done"),
	)

	m = send(m, "compute")

	assert.Equal(t, StateInput, m.state)
	assert.Contains(t, m.viewportContent, "done")
	assert.Equal(t, 2, m.turnCount)
	assert.Equal(t, 0, m.session.Reprompt.Pending())
}

func TestModel_AutoPromptOffLeavesCounterArmed(t *testing.T) {
	m := newTestModel(t, map[string]any{
		settings.AllowPythonExec: true,
		settings.AutoPrompt:      false,
	}, `{"tool": "python_exec", "args": {"code": "x = 1"}}`)

	m = send(m, "compute")

	assert.Equal(t, StateInput, m.state)
	assert.Equal(t, 1, m.turnCount)
	assert.Equal(t, 1, m.session.Reprompt.Pending())
}

func TestModel_FailedTurnShowsAlert(t *testing.T) {
	m := newTestModel(t, nil)

	m = send(m, "hi")

	assert.Equal(t, StateInput, m.state)
	assert.Contains(t, m.viewportContent, conversation.FinalFailureMessage)
	assert.NotContains(t, m.viewportContent, "Error:")
}

func TestModel_CSVObjectInline(t *testing.T) {
	m := newTestModel(t, map[string]any{settings.AllowPythonExec: true},
		`{"tool": "python_exec", "args": {"code": "csv_object = 'city,temp\\nOslo,4'"}}`)

	m = send(m, "weather table")

	assert.Contains(t, m.viewportContent, "csv_object")
	assert.Contains(t, m.viewportContent, "Oslo")
	assert.Empty(t, m.objectsContent)
}

func TestModel_CSVObjectInSidePane(t *testing.T) {
	m := newTestModel(t, map[string]any{
		settings.AllowPythonExec:   true,
		settings.ChatObjectsInline: false,
	}, `{"tool": "python_exec", "args": {"code": "csv_object = 'city,temp\\nOslo,4'"}}`)

	m = send(m, "weather table")

	assert.Contains(t, m.objectsContent, "Oslo")
	assert.NotContains(t, m.viewportContent, "Oslo")
	assert.Less(t, m.viewport.Width, 100)
	assert.Contains(t, m.View(), "│")
}

func TestModel_ClearCommand(t *testing.T) {
	m := newTestModel(t, nil, converse("hello back"))
	m = send(m, "hi")
	require.Contains(t, m.viewportContent, "hello back")

	m = send(m, "/clear")

	assert.Equal(t, 0, m.session.History.Len())
	assert.Contains(t, m.viewportContent, "History cleared.")
	assert.NotContains(t, m.viewportContent, "hello back")
	assert.Equal(t, -1, m.lastSeq)
}

func TestModel_SetCommand(t *testing.T) {
	m := newTestModel(t, nil)

	m = send(m, "/set allow_shell_exec on")
	assert.True(t, m.session.Settings.Bool(settings.AllowShellExec, false))
	assert.Contains(t, m.viewportContent, "allow_shell_exec = on")

	m = send(m, "/set default_tool add")
	assert.Equal(t, "add", m.session.Registry.DefaultToolName())

	m = send(m, "/set bogus on")
	assert.Contains(t, m.viewportContent, `unknown setting "bogus"`)

	m = send(m, "/set auto_prompt maybe")
	assert.Contains(t, m.viewportContent, "auto_prompt takes on or off")

	m = send(m, "/set")
	assert.Contains(t, m.viewportContent, "Settings:")
	assert.NotContains(t, m.viewportContent, settings.ChatCallback)
}

func TestModel_NewSessionsAndSwitch(t *testing.T) {
	m := newTestModel(t, nil, converse("first session reply"))
	m = send(m, "hello from a")
	first := m.session.ID

	m = send(m, "/new")
	second := m.session.ID
	assert.NotEqual(t, first, second)
	assert.NotContains(t, m.viewportContent, "first session reply")
	assert.Len(t, m.manager.List(), 2)

	m = send(m, "/sessions")
	assert.Contains(t, m.viewportContent, first)
	assert.Contains(t, m.viewportContent, "* "+second)

	m = send(m, "/switch "+first[:8])
	assert.Equal(t, first, m.session.ID)
	assert.Contains(t, m.viewportContent, "❯ hello from a")
	assert.Contains(t, m.viewportContent, "first session reply")

	m = send(m, "/switch nope")
	assert.Contains(t, m.viewportContent, `no session matches "nope"`)
	assert.Equal(t, first, m.session.ID)
}

func TestModel_ModelCommands(t *testing.T) {
	m := newTestModel(t, nil)

	m = send(m, "/models")
	assert.Contains(t, m.viewportContent, "* scripted")
	assert.Contains(t, m.viewportContent, "  other")

	m = send(m, "/model other")
	assert.Contains(t, m.viewportContent, "Model: other")
	assert.Equal(t, "other", m.catalog.CurrentName())
	assert.Contains(t, m.View(), "other · session")

	m = send(m, "/model missing")
	assert.Contains(t, m.viewportContent, "Error: load model missing")

	m = send(m, "/model")
	assert.Contains(t, m.viewportContent, "Usage: /model <name>")
}

func TestModel_UnknownCommand(t *testing.T) {
	m := newTestModel(t, nil)
	m = send(m, "/frobnicate")
	assert.Contains(t, m.viewportContent, "Unknown command /frobnicate")
}

func TestModel_QuitCommand(t *testing.T) {
	m := newTestModel(t, nil)
	m.textarea.SetValue("/quit")
	next, cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, next.(*Model).quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, next.(*Model).View())
}

func TestModel_CtrlCInterruptsThenQuits(t *testing.T) {
	m := newTestModel(t, nil)
	m.startWork("Thinking...")
	ctx := m.turnContext()

	next, _ := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(*Model)
	assert.Error(t, ctx.Err())
	assert.False(t, m.quitting)
	assert.Equal(t, "Interrupting...", m.spinnerMsg)

	next, cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, next.(*Model).quitting)
	assert.NotNil(t, cmd)
}

func TestModel_InterruptedTurn(t *testing.T) {
	m := newTestModel(t, nil)
	m.startWork("Thinking...")
	m.session.Reprompt.TrySet(1, true)

	next, _ := m.Update(TurnDoneMsg{SessionID: m.session.ID, Auto: true, Err: context.Canceled})
	m = next.(*Model)

	assert.Contains(t, m.viewportContent, "Interrupted.")
	assert.Equal(t, StateInput, m.state)
	assert.Equal(t, 0, m.session.Reprompt.Pending())
}

func TestModel_StaleTurnResultIgnored(t *testing.T) {
	m := newTestModel(t, nil)
	before := m.viewportContent

	next, cmd := m.Update(TurnDoneMsg{SessionID: "other", Ran: true})
	m = next.(*Model)

	assert.Nil(t, cmd)
	assert.Equal(t, before, m.viewportContent)
	assert.Equal(t, 0, m.turnCount)
}

func TestModel_StatusBar(t *testing.T) {
	m := newTestModel(t, map[string]any{settings.AllowPythonExec: true})
	bar := m.renderStatusBar()

	assert.Contains(t, bar, "scripted")
	assert.Contains(t, bar, "session "+shortID(m.session.ID))
	assert.Contains(t, bar, "python:on shell:off")
	assert.Contains(t, bar, "ready")
	assert.True(t, strings.HasSuffix(bar, " "))
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/history"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/version"
)

const (
	MaxTextareaHeight = 10 // Maximum height for multi-line input

	DefaultTitle      = "Chatbot with tools"
	DefaultInputLabel = "What is up?"
)

// State represents the TUI state machine state.
type State int

const (
	StateStartup State = iota
	StateInput
	StateWorking
	StateConfirm
)

// Config holds TUI configuration.
type Config struct {
	Title      string // chat_ui.window_name
	InputLabel string // chat.chat_input_label
	NoMarkdown bool
	NoColor    bool
	Inline     bool // Disable alt-screen mode
}

// Model is the bubbletea model for the interactive chat.
type Model struct {
	config  Config
	manager *session.Manager
	catalog ModelCatalog
	keys    KeyMap
	styles  Styles

	// State machine
	state   State
	session *session.Session
	alerts  *alertBuffer
	lastSeq int

	// Cancels the running turn on ctrl+c.
	cancel context.CancelFunc

	// Sub-models
	viewport viewport.Model
	objects  viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	selector *SelectorModel

	// Layout
	width  int
	height int
	ready  bool

	viewportContent string
	objectsContent  string

	renderer *MessageRenderer

	// Status
	turnCount  int
	spinnerMsg string

	quitting bool
}

// NewModel creates the TUI model. Sessions come from manager; catalog may
// be nil when model listing is unavailable.
func NewModel(config Config, manager *session.Manager, catalog ModelCatalog) Model {
	if config.Title == "" {
		config.Title = DefaultTitle
	}
	if config.InputLabel == "" {
		config.InputLabel = DefaultInputLabel
	}
	styles := DefaultStyles()
	if config.NoColor {
		styles = NoColorStyles()
	}

	ta := textarea.New()
	ta.Placeholder = config.InputLabel
	ta.Prompt = "❯ "
	ta.CharLimit = 0
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(true)
	ta.KeyMap.InsertNewline.SetKeys("ctrl+j")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		config:   config,
		manager:  manager,
		catalog:  catalog,
		keys:     DefaultKeyMap(),
		styles:   styles,
		state:    StateStartup,
		alerts:   &alertBuffer{},
		lastSeq:  -1,
		textarea: ta,
		spinner:  sp,
		renderer: NewMessageRenderer(0, config.NoMarkdown, styles),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	manager := m.manager
	return tea.Batch(
		tea.SetWindowTitle(m.config.Title),
		m.spinner.Tick,
		func() tea.Msg {
			return SessionReadyMsg{SessionID: manager.Create().ID}
		},
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return &m, cmd

	case SessionReadyMsg:
		return m.handleSessionReady(msg)

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case ResolvedMsg:
		return m.handleResolved(msg)

	case ModelsListedMsg:
		m.renderModels(msg)
		return &m, nil

	case ModelLoadedMsg:
		if msg.Err != nil {
			m.appendError(fmt.Errorf("load model %s: %w", msg.Name, msg.Err))
		} else {
			m.appendSystem("Model: " + msg.Name)
		}
		return &m, nil
	}

	return &m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.styles.SpinnerMessage.Render(m.spinner.View() + " Starting...")
	}

	body := m.viewport.View()
	if !m.objectsInline() {
		bar := m.styles.Separator.Render(strings.TrimRight(strings.Repeat("│\n", m.viewport.Height), "\n"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, bar, m.objects.View())
	}

	sep := m.styles.Separator.Render(strings.Repeat("─", m.width))

	var inputView string
	switch m.state {
	case StateInput:
		inputView = m.textarea.View()
	case StateConfirm:
		if m.selector != nil {
			inputView = m.selector.View()
		}
	default:
		inputView = m.spinner.View() + " " + m.styles.SpinnerMessage.Render(m.spinnerMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		sep,
		inputView,
		sep,
		m.renderStatusBar(),
	)
}

func (m Model) renderStatusBar() string {
	modelName := "?"
	if m.catalog != nil {
		modelName = m.catalog.CurrentName()
	}

	var sessionID, tools string
	if m.session != nil {
		sessionID = shortID(m.session.ID)
		tools = fmt.Sprintf("python:%s shell:%s",
			onOff(m.session.Settings.Bool(settings.AllowPythonExec, false)),
			onOff(m.session.Settings.Bool(settings.AllowShellExec, false)))
	}

	var stateLabel string
	switch m.state {
	case StateInput:
		stateLabel = "ready"
	case StateWorking:
		stateLabel = "working"
	case StateConfirm:
		stateLabel = "confirm"
	case StateStartup:
		stateLabel = "starting"
	}

	left := fmt.Sprintf(" %s · session %s · turn %d · %s · %s", modelName, sessionID, m.turnCount, tools, stateLabel)
	right := fmt.Sprintf("toolchat %s ", version.String())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.styles.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	if !m.ready {
		m.viewport = viewport.New(m.width, 1)
		m.viewport.SetContent(m.viewportContent)
		m.objects = viewport.New(0, 1)
		m.objects.SetContent(m.objectsContent)
		m.ready = true
	}
	m.layout()

	if m.state == StateInput {
		return m, m.focusTextarea()
	}
	return m, nil
}

// layout sizes the viewports around the input area. With
// chat_objects_inline off, side data gets its own pane on the right.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	// separator + input + separator + status bar
	vpHeight := m.height - m.inputAreaHeight() - 3
	if vpHeight < 1 {
		vpHeight = 1
	}

	chatWidth := m.width
	if !m.objectsInline() {
		chatWidth = m.width * 2 / 3
		m.objects.Width = m.width - chatWidth - 1
		m.objects.Height = vpHeight
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(m.width)
	m.renderer.SetWidth(chatWidth)
}

func (m *Model) objectsInline() bool {
	if m.session == nil {
		return true
	}
	return m.session.Settings.Bool(settings.ChatObjectsInline, true)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.handleQuitKey()
	}
	if m.isScrollKey(msg) {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch m.state {
	case StateInput:
		return m.handleInputKey(msg)
	case StateConfirm:
		return m.handleConfirmKey(msg)
	}
	return m, nil
}

// handleQuitKey interrupts a running turn; otherwise it exits.
func (m *Model) handleQuitKey() (tea.Model, tea.Cmd) {
	if m.state == StateWorking && m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.spinnerMsg = "Interrupting..."
		return m, nil
	}
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Don't submit mid-paste.
	if msg.Paste && msg.Type == tea.KeyEnter {
		return m, nil
	}

	if key.Matches(msg, m.keys.Submit) {
		line := strings.TrimSpace(m.textarea.Value())
		m.textarea.Reset()
		m.textarea.SetHeight(1)
		m.layout()
		if line == "" {
			return m, nil
		}
		if cmd, ok := ParseCommand(line); ok {
			return m.runCommand(cmd)
		}
		return m.submit(line)
	}

	if key.Matches(msg, m.keys.Newline) {
		if h := m.textareaHeight() + 1; h <= MaxTextareaHeight {
			m.textarea.SetHeight(h)
			m.layout()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	if h := m.textareaHeight(); h != m.textarea.Height() {
		m.textarea.SetHeight(h)
		m.layout()
	}
	return m, cmd
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.selector == nil || !m.selector.Update(msg) {
		return m, nil
	}
	decision := m.selector.Decision()
	m.selector = nil
	m.layout()

	if decision == models.DecisionApprove {
		m.appendSystem("Allowed.")
		m.startWork("Running...")
	} else {
		m.appendSystem("Denied.")
		m.startWork("Denying...")
	}
	return m, resolveCmd(m.turnContext(), m.session, m.alerts, decision)
}

func (m *Model) submit(line string) (tea.Model, tea.Cmd) {
	m.appendToViewport(m.renderer.RenderUserInput(line))
	m.startWork("Thinking...")
	return m, submitCmd(m.turnContext(), m.session, m.alerts, line)
}

func (m *Model) startWork(msg string) {
	m.state = StateWorking
	m.spinnerMsg = msg
	m.textarea.Blur()
}

// turnContext returns a context that ctrl+c cancels.
func (m *Model) turnContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	return ctx
}

func (m *Model) finishWork() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) handleSessionReady(msg SessionReadyMsg) (tea.Model, tea.Cmd) {
	s, ok := m.manager.Get(msg.SessionID)
	if !ok {
		m.appendError(fmt.Errorf("unknown session %s", msg.SessionID))
		return m, nil
	}
	if m.session != nil {
		m.session.SetSink(nil)
	}
	m.session = s
	s.SetSink(m.alerts.sink())

	m.lastSeq = -1
	m.viewportContent = ""
	m.objectsContent = ""
	m.viewport.SetContent("")
	m.objects.SetContent("")
	m.layout()

	m.appendSystem("Session " + s.ID)
	m.renderNew(msg.Replay)
	return m, m.afterTurn()
}

func (m *Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	if m.session == nil || msg.SessionID != m.session.ID {
		return m, nil
	}
	m.finishWork()
	m.renderNew(false)
	m.renderAlerts(msg.Alerts)

	var failed *conversation.TurnFailedError
	switch {
	case errors.As(msg.Err, &failed):
		// The sink alert already told the user.
	case errors.Is(msg.Err, context.Canceled):
		m.appendSystem("Interrupted.")
		m.session.Reprompt.Clear()
	case msg.Err != nil:
		m.appendError(msg.Err)
	}
	if msg.Ran {
		m.turnCount++
	}
	return m, m.afterTurn()
}

func (m *Model) handleResolved(msg ResolvedMsg) (tea.Model, tea.Cmd) {
	if m.session == nil || msg.SessionID != m.session.ID {
		return m, nil
	}
	m.finishWork()
	m.renderNew(false)
	m.renderAlerts(msg.Alerts)
	if msg.Err != nil {
		m.appendError(msg.Err)
	}
	return m, m.afterTurn()
}

// afterTurn decides what follows a turn: the confirmation widget when an
// execution is waiting, another automatic turn when one is armed, or the
// input box.
func (m *Model) afterTurn() tea.Cmd {
	s := m.session
	if pending, ok := s.Pending(); ok {
		m.appendToViewport(m.renderer.RenderConfirmation(pending))
		m.state = StateConfirm
		m.selector = NewSelectorModel(ConfirmOptions(), m.styles)
		m.textarea.Blur()
		m.layout()
		return nil
	}
	if s.Reprompt.Pending() > 0 && s.Settings.Bool(settings.AutoPrompt, true) {
		m.startWork("Thinking...")
		return pollCmd(m.turnContext(), s, m.alerts)
	}
	m.state = StateInput
	m.layout()
	return m.focusTextarea()
}

// renderNew appends history messages added since the last render.
func (m *Model) renderNew(replay bool) {
	if m.session == nil {
		return
	}
	msgs, reset := m.session.History.Since(m.lastSeq)
	if reset {
		m.lastSeq = -1
	}
	if len(msgs) == 0 {
		return
	}
	m.lastSeq = msgs[len(msgs)-1].Seq

	show := m.session.Settings.Bool(settings.DisplayToolCalls, false)
	inline := m.objectsInline()
	for _, msg := range history.Visible(msgs, show) {
		if out := m.renderer.RenderMessage(msg, replay); out != "" {
			m.appendToViewport(out)
		}
		if len(msg.SideData) == 0 {
			continue
		}
		data := m.renderer.RenderSideData(msg.SideData)
		if inline {
			m.appendToViewport(data)
		} else {
			m.appendToObjects(data)
		}
	}
}

func (m *Model) renderAlerts(alerts []string) {
	for _, a := range alerts {
		m.appendToViewport(m.renderer.RenderAlert(a))
	}
}

func (m *Model) renderModels(msg ModelsListedMsg) {
	if msg.Err != nil {
		m.appendError(fmt.Errorf("list models: %w", msg.Err))
	}
	if len(msg.Names) == 0 {
		m.appendSystem("No models available.")
		return
	}
	var b strings.Builder
	b.WriteString("Models:")
	for _, name := range msg.Names {
		marker := " "
		if name == msg.Current {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n %s %s", marker, name)
	}
	m.appendSystem(b.String())
}

func (m *Model) appendSystem(text string) {
	m.appendToViewport(m.renderer.RenderSystemMessage(text))
}

func (m *Model) appendError(err error) {
	m.appendToViewport(m.renderer.RenderAlert("Error: " + err.Error()))
}

func (m *Model) appendToViewport(content string) {
	wasAtBottom := m.viewport.AtBottom()
	m.viewportContent += content
	m.viewport.SetContent(m.viewportContent)
	if wasAtBottom || !m.ready {
		m.viewport.GotoBottom()
	}
}

func (m *Model) appendToObjects(content string) {
	m.objectsContent += content
	m.objects.SetContent(m.objectsContent)
	m.objects.GotoBottom()
}

// focusTextarea focuses the textarea and returns a blink command. In test
// environments where the cursor context isn't available, this recovers
// from panics.
func (m *Model) focusTextarea() tea.Cmd {
	defer func() { recover() }()
	m.textarea.Focus()
	return textarea.Blink
}

func (m *Model) isScrollKey(msg tea.KeyMsg) bool {
	for _, b := range m.keys.scrollKeys() {
		if key.Matches(msg, b) {
			return true
		}
	}
	return false
}

// textareaHeight returns the height for the current content, capped at
// MaxTextareaHeight.
func (m *Model) textareaHeight() int {
	lines := strings.Count(m.textarea.Value(), "\n") + 1
	if lines > MaxTextareaHeight {
		lines = MaxTextareaHeight
	}
	return lines
}

func (m *Model) inputAreaHeight() int {
	if m.selector != nil {
		return m.selector.Height()
	}
	return m.textareaHeight()
}

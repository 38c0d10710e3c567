package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/settings"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a "/name arg..." line. Lines that do not start with
// a slash are not commands.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{}, false
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// HelpText lists the slash commands.
const HelpText = `Commands:
  /clear               clear this session's history
  /set                 show settings
  /set <key> on|off    change a setting (/set default_tool <name> for strings)
  /models              list the models the server offers
  /model <name>        switch model
  /new                 start a new session
  /sessions            list sessions
  /switch <id>         switch to a session (id prefix is enough)
  /quit                exit`

// ParseSetting validates a /set value for key. on/off/true/false (and
// yes/no, 1/0) are booleans; default_tool and exec_confirm_timeout take the
// raw string.
func ParseSetting(key, raw string) (any, error) {
	if !settings.Settable(key) {
		return nil, fmt.Errorf("unknown setting %q", key)
	}
	switch key {
	case settings.DefaultTool, settings.ExecConfirmTimeout:
		return raw, nil
	}
	switch strings.ToLower(raw) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return nil, fmt.Errorf("%s takes on or off, got %q", key, raw)
}

// ApplySetting stores value and keeps the registry's default tool in sync.
func ApplySetting(s *session.Session, key string, value any) {
	s.Settings.Set(key, value)
	if key == settings.DefaultTool {
		if name, ok := value.(string); ok && name != "" {
			s.Registry.SetDefaultToolName(name)
		}
	}
}

// FormatSettings renders the settable settings of s, one per line.
func FormatSettings(s *session.Session) string {
	all := s.Settings.All()
	keys := make([]string, 0, len(all))
	for k := range all {
		if settings.Settable(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := all[k]
		if bv, ok := v.(bool); ok {
			v = onOff(bv)
		}
		fmt.Fprintf(&b, "  %-22s %v\n", k, v)
	}
	return strings.TrimRight(b.String(), "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// alertBuffer collects sink alerts raised while a command runs.
type alertBuffer struct {
	mu     sync.Mutex
	alerts []string
}

func (a *alertBuffer) sink() conversation.Sink {
	return conversation.SinkFuncs{OnAlert: a.add}
}

func (a *alertBuffer) add(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, text)
}

func (a *alertBuffer) drain() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.alerts
	a.alerts = nil
	return out
}

// submitCmd runs one turn for user input. A confirmation that outlived its
// timeout is expired first so the model sees the outcome.
func submitCmd(ctx context.Context, s *session.Session, alerts *alertBuffer, input string) tea.Cmd {
	return func() tea.Msg {
		s.ExpireStale()
		err := s.Submit(ctx, input)
		return TurnDoneMsg{SessionID: s.ID, Alerts: alerts.drain(), Ran: true, Err: err}
	}
}

// pollCmd runs at most one automatic turn. A failed automatic turn clears
// the re-prompt counter so it does not loop.
func pollCmd(ctx context.Context, s *session.Session, alerts *alertBuffer) tea.Cmd {
	return func() tea.Msg {
		ran, err := s.Poll(ctx)
		if err != nil {
			s.Reprompt.Clear()
		}
		return TurnDoneMsg{SessionID: s.ID, Alerts: alerts.drain(), Auto: true, Ran: ran, Err: err}
	}
}

// resolveCmd answers the pending confirmation.
func resolveCmd(ctx context.Context, s *session.Session, alerts *alertBuffer, decision models.Decision) tea.Cmd {
	return func() tea.Msg {
		if s.ExpireStale() {
			return ResolvedMsg{SessionID: s.ID, Decision: decision, Result: models.TextResult(gate.ExpiredMessage)}
		}
		result, err := s.Resolve(ctx, decision)
		if errors.Is(err, gate.ErrNoPendingAction) {
			err = fmt.Errorf("nothing is waiting for confirmation")
		}
		return ResolvedMsg{SessionID: s.ID, Decision: decision, Result: result, Alerts: alerts.drain(), Err: err}
	}
}

// ModelCatalog is the part of the model cache the TUI drives.
// *llm.ModelCache implements it.
type ModelCatalog interface {
	CurrentName() string
	Available(ctx context.Context) ([]string, error)
	Load(name string) (llm.Model, error)
}

func listModelsCmd(ctx context.Context, catalog ModelCatalog) tea.Cmd {
	return func() tea.Msg {
		names, err := catalog.Available(ctx)
		return ModelsListedMsg{Current: catalog.CurrentName(), Names: names, Err: err}
	}
}

func loadModelCmd(catalog ModelCatalog, name string) tea.Cmd {
	return func() tea.Msg {
		_, err := catalog.Load(name)
		return ModelLoadedMsg{Name: name, Err: err}
	}
}

// runCommand executes a slash command typed at the input box.
func (m *Model) runCommand(cmd Command) (tea.Model, tea.Cmd) {
	switch cmd.Name {
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit

	case "help":
		m.appendSystem(HelpText)

	case "clear":
		m.session.ClearHistory()
		m.lastSeq = -1
		m.viewportContent = ""
		m.objectsContent = ""
		m.viewport.SetContent("")
		m.objects.SetContent("")
		m.appendSystem("History cleared.")

	case "set":
		m.setCommand(cmd.Args)

	case "models":
		if m.catalog == nil {
			m.appendSystem("Model listing is not available.")
			return m, nil
		}
		return m, listModelsCmd(context.Background(), m.catalog)

	case "model":
		if m.catalog == nil {
			m.appendSystem("Model switching is not available.")
			return m, nil
		}
		if len(cmd.Args) != 1 {
			m.appendSystem("Usage: /model <name>")
			return m, nil
		}
		return m, loadModelCmd(m.catalog, cmd.Args[0])

	case "new":
		s := m.manager.Create()
		return m.handleSessionReady(SessionReadyMsg{SessionID: s.ID})

	case "sessions":
		var b strings.Builder
		b.WriteString("Sessions:")
		for _, id := range m.manager.List() {
			marker := " "
			if id == m.session.ID {
				marker = "*"
			}
			n := 0
			if s, ok := m.manager.Get(id); ok {
				n = s.History.Len()
			}
			fmt.Fprintf(&b, "\n %s %s (%d messages)", marker, id, n)
		}
		m.appendSystem(b.String())

	case "switch":
		if len(cmd.Args) != 1 {
			m.appendSystem("Usage: /switch <id>")
			return m, nil
		}
		id, err := findSession(m.manager.List(), cmd.Args[0])
		if err != nil {
			m.appendError(err)
			return m, nil
		}
		return m.handleSessionReady(SessionReadyMsg{SessionID: id, Replay: true})

	default:
		m.appendSystem(fmt.Sprintf("Unknown command /%s. Type /help for commands.", cmd.Name))
	}
	return m, nil
}

func (m *Model) setCommand(args []string) {
	switch len(args) {
	case 0:
		m.appendSystem("Settings:\n" + FormatSettings(m.session))
		return
	case 1:
		v, ok := m.session.Settings.Get(args[0])
		if !ok || !settings.Settable(args[0]) {
			m.appendError(fmt.Errorf("unknown setting %q", args[0]))
			return
		}
		m.appendSystem(fmt.Sprintf("%s = %v", args[0], v))
		return
	}

	key := args[0]
	value, err := ParseSetting(key, strings.Join(args[1:], " "))
	if err != nil {
		m.appendError(err)
		return
	}
	ApplySetting(m.session, key, value)
	if bv, ok := value.(bool); ok {
		value = onOff(bv)
	}
	m.appendSystem(fmt.Sprintf("%s = %v", key, value))
	if key == settings.ChatObjectsInline {
		m.layout()
	}
}

// findSession resolves an id or unique id prefix.
func findSession(ids []string, prefix string) (string, error) {
	var match string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("session prefix %q is ambiguous", prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("no session matches %q", prefix)
	}
	return match, nil
}

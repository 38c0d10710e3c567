// Package cli implements the interactive terminal chat for toolchat.
package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/mfateev/toolchat/internal/history"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/tools/handlers"
)

// maxTableRows bounds how many csv_object rows are drawn.
const maxTableRows = 50

// MessageRenderer renders history messages and side data as styled strings
// for the viewport.
type MessageRenderer struct {
	width      int
	noMarkdown bool
	styles     Styles
	mdRenderer *glamour.TermRenderer
}

// NewMessageRenderer creates a renderer. A width of zero uses the terminal
// width.
func NewMessageRenderer(width int, noMarkdown bool, styles Styles) *MessageRenderer {
	r := &MessageRenderer{
		width:      width,
		noMarkdown: noMarkdown,
		styles:     styles,
	}
	r.resetMarkdown()
	return r
}

// SetWidth changes the wrap width.
func (r *MessageRenderer) SetWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.resetMarkdown()
}

func (r *MessageRenderer) resetMarkdown() {
	r.mdRenderer = nil
	if r.noMarkdown {
		return
	}
	w := r.width
	if w <= 0 {
		w = 80
		if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && tw > 0 {
			w = tw
		}
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(w),
	)
	if err == nil {
		r.mdRenderer = md
	}
}

// RenderMessage renders one history message. User messages are skipped
// unless replay is set; they were echoed when submitted.
func (r *MessageRenderer) RenderMessage(msg models.Message, replay bool) string {
	switch msg.Role {
	case models.RoleUser:
		if replay {
			return r.RenderUserInput(msg.Content)
		}
		return ""
	case models.RoleAssistant:
		return r.RenderAssistant(msg)
	default:
		return ""
	}
}

// RenderUserInput renders a line the user typed.
func (r *MessageRenderer) RenderUserInput(text string) string {
	return r.styles.UserMessage.Render("❯ "+text) + "\n"
}

// RenderAssistant renders assistant text. Tool traffic is shown verbatim
// in its own style; everything else goes through markdown.
func (r *MessageRenderer) RenderAssistant(msg models.Message) string {
	content := strings.TrimRight(msg.Content, "\n")
	if content == "" {
		return ""
	}
	if history.IsToolTraffic(content) {
		style := r.styles.ToolTraffic
		if strings.HasPrefix(content, history.AttemptFailurePrefix) {
			style = r.styles.SystemNote
		}
		return style.Render(truncateString(content, 400)) + "\n"
	}
	return r.markdown(content)
}

func (r *MessageRenderer) markdown(content string) string {
	if r.mdRenderer != nil {
		if rendered, err := r.mdRenderer.Render(content); err == nil {
			return rendered
		}
	}
	return "\n" + content + "\n\n"
}

// RenderSideData renders a message's side data: csv_object as a table,
// return_object as JSON. Unknown keys are rendered like return_object.
func (r *MessageRenderer) RenderSideData(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(r.styles.ObjectLabel.Render(k) + "\n")
		if k == handlers.CSVObject {
			if tbl := r.RenderTable(data[k]); tbl != "" {
				b.WriteString(tbl + "\n")
				continue
			}
		}
		b.WriteString(r.renderObject(data[k]))
	}
	return b.String()
}

func (r *MessageRenderer) renderObject(v any) string {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return r.styles.ObjectBody.Render(fmt.Sprint(v)) + "\n"
	}
	if r.mdRenderer != nil {
		return r.markdown("```json\n" + string(encoded) + "\n```")
	}
	return r.styles.ObjectBody.Render(string(encoded)) + "\n"
}

// RenderTable draws tabular side data. It returns "" when v has no
// tabular shape.
func (r *MessageRenderer) RenderTable(v any) string {
	header, rows := tableRows(v)
	if len(header) == 0 && len(rows) == 0 {
		return ""
	}
	omitted := 0
	if len(rows) > maxTableRows {
		omitted = len(rows) - maxTableRows
		rows = rows[:maxTableRows]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.styles.TableBorder).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.TableHeader
			}
			return r.styles.TableCell
		}).
		Headers(header...).
		Rows(rows...)
	if r.width > 0 {
		t = t.Width(r.width)
	}

	out := t.Render()
	if omitted > 0 {
		out += "\n" + r.styles.SystemNote.Render(fmt.Sprintf("… +%d rows", omitted))
	}
	return out
}

// tableRows normalizes the shapes code can hand back: CSV text, a list of
// rows (first row is the header), or a list of dicts (sorted keys form the
// header).
func tableRows(v any) (header []string, rows [][]string) {
	switch x := v.(type) {
	case string:
		records, err := csv.NewReader(strings.NewReader(x)).ReadAll()
		if err != nil || len(records) == 0 {
			return nil, nil
		}
		return records[0], records[1:]
	case []any:
		if len(x) == 0 {
			return nil, nil
		}
		if first, ok := x[0].(map[string]any); ok {
			for k := range first {
				header = append(header, k)
			}
			sort.Strings(header)
			for _, item := range x {
				m, _ := item.(map[string]any)
				row := make([]string, len(header))
				for i, k := range header {
					if cell, ok := m[k]; ok {
						row[i] = cellString(cell)
					}
				}
				rows = append(rows, row)
			}
			return header, rows
		}
		for _, item := range x {
			rows = append(rows, rowStrings(item))
		}
		return rows[0], rows[1:]
	}
	return nil, nil
}

func rowStrings(item any) []string {
	cells, ok := item.([]any)
	if !ok {
		return []string{cellString(item)}
	}
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = cellString(c)
	}
	return row
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	}
	return fmt.Sprint(v)
}

// RenderConfirmation renders the code or command awaiting a decision. The
// selector below it carries the options.
func (r *MessageRenderer) RenderConfirmation(action models.PendingAction) string {
	lang := "sh"
	what := "run a shell command"
	if action.Kind == handlers.KindCode {
		lang = "python"
		what = "run Python code"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(r.styles.ConfirmHeader.Render("The assistant wants to "+what+":") + "\n")
	lines := strings.Split(strings.TrimRight(action.Payload, "\n"), "\n")
	if r.mdRenderer != nil {
		b.WriteString(r.markdown("```" + lang + "\n" + strings.Join(lines, "\n") + "\n```"))
		return b.String()
	}
	for i, line := range lines {
		prefix := r.styles.OutputPrefix.Render("  │ ")
		if i == 0 {
			prefix = r.styles.OutputPrefix.Render("  └ ")
		}
		b.WriteString(prefix + r.styles.ConfirmCode.Render(line) + "\n")
	}
	return b.String()
}

// RenderAlert renders a terminal failure notice.
func (r *MessageRenderer) RenderAlert(text string) string {
	return r.styles.Alert.Render(text) + "\n"
}

// RenderSystemMessage renders a host notice such as a command result.
func (r *MessageRenderer) RenderSystemMessage(text string) string {
	return r.styles.SystemNote.Render(text) + "\n"
}

// truncateString truncates s to maxLen bytes, appending "…" if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "…"
}

// shortID returns the first eight characters of a session id.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/tools/handlers"
)

func newTestRenderer() *MessageRenderer {
	return NewMessageRenderer(80, true, NoColorStyles())
}

func TestRenderMessage_UserOnlyOnReplay(t *testing.T) {
	r := newTestRenderer()
	msg := models.Message{Role: models.RoleUser, Content: "hi there"}

	assert.Empty(t, r.RenderMessage(msg, false))
	assert.Equal(t, "❯ hi there\n", r.RenderMessage(msg, true))
}

func TestRenderMessage_Assistant(t *testing.T) {
	r := newTestRenderer()
	out := r.RenderMessage(models.Message{Role: models.RoleAssistant, Content: "hello"}, false)
	assert.Equal(t, "\nhello\n\n", out)
}

func TestRenderMessage_SkipsEmptyAndSystem(t *testing.T) {
	r := newTestRenderer()
	assert.Empty(t, r.RenderMessage(models.Message{Role: models.RoleAssistant, Content: "\n"}, false))
	assert.Empty(t, r.RenderMessage(models.Message{Role: models.RoleSystem, Content: "rules"}, true))
}

func TestRenderAssistant_ToolTrafficVerbatim(t *testing.T) {
	r := newTestRenderer()
	raw := `{"tool": "add", "args": {"first": 2, "second": 3}}`
	assert.Equal(t, raw+"\n", r.RenderAssistant(models.Message{Content: raw}))
}

func TestRenderSideData_CSVText(t *testing.T) {
	r := newTestRenderer()
	out := r.RenderSideData(map[string]any{
		handlers.CSVObject: "name,age\nalice,30\nbob,41\n",
	})

	assert.Contains(t, out, handlers.CSVObject)
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "41")
}

func TestRenderSideData_ReturnObjectAsJSON(t *testing.T) {
	r := newTestRenderer()
	out := r.RenderSideData(map[string]any{
		handlers.ReturnObject: map[string]any{"answer": 42},
	})
	assert.Contains(t, out, handlers.ReturnObject)
	assert.Contains(t, out, `"answer": 42`)
}

func TestRenderSideData_SortedKeys(t *testing.T) {
	r := newTestRenderer()
	out := r.RenderSideData(map[string]any{
		handlers.ReturnObject: "x",
		handlers.CSVObject:    "a\n1\n",
	})
	assert.Less(t, strings.Index(out, handlers.CSVObject), strings.Index(out, handlers.ReturnObject))
}

func TestRenderSideData_Empty(t *testing.T) {
	assert.Empty(t, newTestRenderer().RenderSideData(nil))
}

func TestTableRows(t *testing.T) {
	t.Run("list of rows", func(t *testing.T) {
		header, rows := tableRows([]any{
			[]any{"x", "y"},
			[]any{int64(1), 2.5},
		})
		assert.Equal(t, []string{"x", "y"}, header)
		assert.Equal(t, [][]string{{"1", "2.5"}}, rows)
	})

	t.Run("list of dicts", func(t *testing.T) {
		header, rows := tableRows([]any{
			map[string]any{"b": "two", "a": "one"},
			map[string]any{"a": "three"},
		})
		assert.Equal(t, []string{"a", "b"}, header)
		assert.Equal(t, [][]string{{"one", "two"}, {"three", ""}}, rows)
	})

	t.Run("not tabular", func(t *testing.T) {
		header, rows := tableRows(42)
		assert.Nil(t, header)
		assert.Nil(t, rows)
	})

	t.Run("bad csv", func(t *testing.T) {
		header, _ := tableRows("a,\"b\nc")
		assert.Nil(t, header)
	})
}

func TestRenderTable_TruncatesRows(t *testing.T) {
	r := newTestRenderer()
	rows := []any{[]any{"n"}}
	for i := 0; i < maxTableRows+5; i++ {
		rows = append(rows, []any{int64(i)})
	}
	out := r.RenderTable(rows)
	assert.Contains(t, out, "… +5 rows")
}

func TestRenderConfirmation(t *testing.T) {
	r := newTestRenderer()

	out := r.RenderConfirmation(models.PendingAction{Kind: handlers.KindCode, Payload: "x = 1\nprint(x)\n"})
	assert.Contains(t, out, "run Python code")
	assert.Contains(t, out, "└ x = 1")
	assert.Contains(t, out, "│ print(x)")

	out = r.RenderConfirmation(models.PendingAction{Kind: handlers.KindShell, Payload: "ls -la"})
	assert.Contains(t, out, "run a shell command")
	assert.Contains(t, out, "ls -la")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc…", truncateString("abcdef", 3))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("12345678-aaaa-bbbb"))
	assert.Equal(t, "abc", shortID("abc"))
}

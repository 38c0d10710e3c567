package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mfateev/toolchat/internal/models"
)

func TestVisible_HidesToolTrafficByDefault(t *testing.T) {
	h := NewInMemoryHistory()
	h.Append(models.RoleAssistant, "How can I help you?", nil)
	h.Append(models.RoleUser, "run it", nil)
	h.Append(models.RoleAssistant, `{"tool": "shell_exec", "args": {"command": "ls"}}`, nil)
	h.Append(models.RoleAssistant, "Execution Attempt 1 failed: invalid json output", nil)
	h.Append(models.RoleAssistant, "done", nil)

	all := h.List()
	hidden := Visible(all, false)
	assert.Equal(t, []string{"How can I help you?", "run it", "done"}, contents(hidden))

	shown := Visible(all, true)
	assert.Len(t, shown, 5)
	assert.Equal(t, "Execution Attempt 1 failed: invalid json output", shown[3].Content)

	assert.Len(t, h.List(), 5, "filtering never removes entries from history")
}

func TestVisible_SkipsSystemMessages(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "private note"},
		{Role: models.RoleUser, Content: "hi"},
	}
	assert.Equal(t, []string{"hi"}, contents(Visible(msgs, true)))
}

func TestIsToolTraffic(t *testing.T) {
	assert.True(t, IsToolTraffic("  {\"tool\": \"add\"}"))
	assert.True(t, IsToolTraffic("Execution Attempt 3 failed: boom"))
	assert.False(t, IsToolTraffic("The attempt failed"))
	assert.False(t, IsToolTraffic(""))
}

func contents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

package history

import (
	"strings"

	"github.com/mfateev/toolchat/internal/models"
)

// AttemptFailurePrefix marks retry diagnostics written by the conversation
// driver.
const AttemptFailurePrefix = "Execution Attempt"

// IsToolTraffic reports whether content is model plumbing rather than
// conversation: a raw JSON tool call or a retry diagnostic.
func IsToolTraffic(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, AttemptFailurePrefix) || strings.HasPrefix(trimmed, "{")
}

// Visible returns the messages a human should see. Tool traffic is hidden
// unless showToolCalls is set. The input slice is not modified.
func Visible(messages []models.Message, showToolCalls bool) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}
		if !showToolCalls && IsToolTraffic(m.Content) {
			continue
		}
		out = append(out, m)
	}
	return out
}

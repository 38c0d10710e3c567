package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
)

func TestArithmeticTools(t *testing.T) {
	d, _, _, _ := newSession(t, nil)
	ctx := context.Background()
	args := map[string]any{"first": float64(6), "second": float64(7)}

	out, err := d.Dispatch(ctx, models.ToolCall{Tool: "add", HasTool: true, Args: args, HasArgs: true})
	require.NoError(t, err)
	assert.Equal(t, "13", out.Message)

	out, err = d.Dispatch(ctx, models.ToolCall{Tool: "multiply", HasTool: true, Args: args, HasArgs: true})
	require.NoError(t, err)
	assert.Equal(t, "42", out.Message)

	_, err = d.Dispatch(ctx, models.ToolCall{Tool: "add", HasTool: true, Args: map[string]any{"first": "six", "second": 7}})
	assert.True(t, tools.IsArgumentError(err))
}

func TestArithmeticTools_ExactResults(t *testing.T) {
	d, _, _, _ := newSession(t, nil)
	ctx := context.Background()

	tests := []struct {
		raw  string
		want string
	}{
		{`{"tool": "multiply", "args": {"first": 4294967296, "second": 4294967296}}`, "18446744073709551616"},
		{`{"tool": "add", "args": {"first": 9007199254740992, "second": 9007199254740992}}`, "18014398509481984"},
		{`{"tool": "multiply", "args": {"first": -9007199254740992, "second": 9007199254740992}}`, "-81129638414606681695789005144064"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			call, err := conversation.ParseToolCall(tt.raw)
			require.NoError(t, err)
			out, err := d.Dispatch(ctx, call)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Message)
		})
	}
}

func TestArithmeticTools_RejectInexactArguments(t *testing.T) {
	d, _, _, _ := newSession(t, nil)

	for _, raw := range []string{
		`{"tool": "add", "args": {"first": 9223372036854775807, "second": 1}}`,
		`{"tool": "add", "args": {"first": 1e20, "second": 1}}`,
		`{"tool": "multiply", "args": {"first": 9007199254740994, "second": 2}}`,
	} {
		call, err := conversation.ParseToolCall(raw)
		require.NoError(t, err)
		_, err = d.Dispatch(context.Background(), call)
		assert.True(t, tools.IsArgumentError(err), raw)
	}
}

func TestConverseIsDefault(t *testing.T) {
	d, _, _, _ := newSession(t, nil)

	out, err := d.Dispatch(context.Background(), models.ToolCall{
		Args: map[string]any{"response": "Hello there"}, HasArgs: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out.Message)
}

func TestInstallRegistersAll(t *testing.T) {
	registry := tools.NewRegistry(nil)
	Install(registry, nil)

	assert.Equal(t, 5, registry.Count())
	for _, name := range []string{"add", "multiply", "converse", "python_exec", "shell_exec"} {
		assert.True(t, registry.HasTool(name), name)
	}
	assert.Equal(t, "converse", registry.DefaultToolName())
}

func TestOptionKeys(t *testing.T) {
	keys := OptionKeys()
	require.Len(t, keys, 3)
	assert.Equal(t, settings.AllowPythonExec, keys[0].Key)
	assert.Equal(t, settings.PresentExecDialog, keys[2].Key)
}

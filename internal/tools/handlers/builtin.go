package handlers

import (
	"context"
	"math/big"

	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/tools"
)

// binaryIntTool implements add and multiply. Results are exact, so they
// may exceed the int64 range of the arguments.
type binaryIntTool struct {
	name        string
	description string
	op          func(z, a, b *big.Int) *big.Int
}

// NewAddTool creates the add tool.
func NewAddTool() tools.Handler {
	return &binaryIntTool{
		name:        "add",
		description: "Add two integers.",
		op:          (*big.Int).Add,
	}
}

// NewMultiplyTool creates the multiply tool.
func NewMultiplyTool() tools.Handler {
	return &binaryIntTool{
		name:        "multiply",
		description: "Multiply two integers together.",
		op:          (*big.Int).Mul,
	}
}

func (t *binaryIntTool) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        t.name,
		Description: t.description,
		Parameters: []tools.ToolParameter{
			{Name: "first", Type: tools.TypeInteger, Required: true},
			{Name: "second", Type: tools.TypeInteger, Required: true},
		},
	}
}

func (t *binaryIntTool) Handle(_ context.Context, inv *tools.Invocation) (*models.ToolResult, error) {
	a := big.NewInt(tools.IntArg(inv.Arguments, "first"))
	b := big.NewInt(tools.IntArg(inv.Arguments, "second"))
	return models.TextResult(t.op(new(big.Int), a, b).String()), nil
}

// ConverseTool returns the model's reply text unchanged. It is the default
// tool, so plain conversational turns land here.
type ConverseTool struct{}

// NewConverseTool creates the converse tool.
func NewConverseTool() *ConverseTool {
	return &ConverseTool{}
}

func (t *ConverseTool) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name: tools.DefaultToolName,
		Description: "Use this to respond conversationally. " +
			"Respond conversationally if no other tools should be called for a given query.",
		Parameters: []tools.ToolParameter{
			{Name: "response", Type: tools.TypeString, Description: "The reply to show the user", Required: true},
		},
	}
}

func (t *ConverseTool) Handle(_ context.Context, inv *tools.Invocation) (*models.ToolResult, error) {
	return models.TextResult(tools.StringArg(inv.Arguments, "response")), nil
}

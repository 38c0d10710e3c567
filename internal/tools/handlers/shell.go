// Package handlers contains the built-in tools.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mfateev/toolchat/internal/exec"
	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
)

// Gate kinds for the two unsafe tools.
const (
	KindShell = "shell"
	KindCode  = "python"
)

var errNoGate = errors.New("gated tool invoked without a gate")

// ShellExecTool runs a shell command behind the execution gate.
type ShellExecTool struct{}

// NewShellExecTool creates a new shell tool handler.
func NewShellExecTool() *ShellExecTool {
	return &ShellExecTool{}
}

func (t *ShellExecTool) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "shell_exec",
		Description: "Use this tool as a last resort. Run a system command with bash. Captures stdout and returns it.",
		Parameters: []tools.ToolParameter{
			{Name: "command", Type: tools.TypeString, Description: "The command line to run", Required: true},
		},
	}
}

// Handle hands the command to the gate. The gate decides whether it runs
// now, later, or never.
func (t *ShellExecTool) Handle(ctx context.Context, inv *tools.Invocation) (*models.ToolResult, error) {
	if inv.Gate == nil {
		return nil, errNoGate
	}
	return inv.Gate.Check(ctx, KindShell, tools.StringArg(inv.Arguments, "command"))
}

// ExecuteShell is the gate executor for KindShell. Exit status 0 yields
// stdout; any other status yields the exit code and stderr. Only a failure
// to run the process at all is an error.
func ExecuteShell(ctx context.Context, req gate.Request) (*models.ToolResult, error) {
	res, err := exec.RunShell(ctx, req.Payload)
	if err != nil {
		return nil, err
	}
	if res.ExitCode == 0 {
		return models.TextResult(res.Stdout), nil
	}
	return models.TextResult(fmt.Sprintf("Command failed! (exit code: %d)\n%s", res.ExitCode, res.Stderr)), nil
}

// shellAllowKey is the setting that enables shell_exec.
const shellAllowKey = settings.AllowShellExec

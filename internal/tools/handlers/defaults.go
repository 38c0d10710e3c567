package handlers

import (
	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
)

// Option is a boolean tool setting the host exposes as a toggle.
type Option struct {
	Key   string
	Label string
}

// OptionKeys lists the toggles that govern the built-in tools.
func OptionKeys() []Option {
	return []Option{
		{Key: settings.AllowPythonExec, Label: "Allow python code execution"},
		{Key: settings.AllowShellExec, Label: "Allow shell execution"},
		{Key: settings.PresentExecDialog, Label: "Present code execution dialog"},
	}
}

// Defaults returns the built-in tools.
func Defaults() []tools.Handler {
	return []tools.Handler{
		NewAddTool(),
		NewMultiplyTool(),
		NewConverseTool(),
		NewPythonExecTool(),
		NewShellExecTool(),
	}
}

// Install registers the built-in tools and binds the gate executors for
// the unsafe ones.
func Install(registry *tools.Registry, g *gate.Gate) {
	for _, h := range Defaults() {
		registry.Register(h)
	}
	registry.SetDefaultToolName(tools.DefaultToolName)
	if g != nil {
		g.Register(KindShell, shellAllowKey, ExecuteShell)
		g.Register(KindCode, codeAllowKey, ExecuteCode)
	}
}

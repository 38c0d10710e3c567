package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/mfateev/toolchat/internal/gate"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
)

// Side-channel globals collected from executed code.
const (
	ReturnObject = "return_object"
	CSVObject    = "csv_object"
)

// SideChannelNames lists the globals copied into a result's Data.
var SideChannelNames = []string{ReturnObject, CSVObject}

// maxExecutionSteps bounds a single run so a runaway loop cannot hang the
// session.
const maxExecutionSteps = 100_000_000

const codeAllowKey = settings.AllowPythonExec

var codeFileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// PythonExecTool runs model-written code in the embedded interpreter behind
// the execution gate.
type PythonExecTool struct{}

// NewPythonExecTool creates a new code tool handler.
func NewPythonExecTool() *PythonExecTool {
	return &PythonExecTool{}
}

func (t *PythonExecTool) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name: "python_exec",
		Description: "Use this tool as a last resort. Run some generated Python code " +
			"(Starlark dialect: no imports; math, json and time are predefined). " +
			"Output from print() is captured and returned as text. " +
			"Put a non-text result in a variable called return_object. " +
			"Put tabular data in a variable called csv_object, either CSV text or a list of rows.",
		Parameters: []tools.ToolParameter{
			{Name: "code", Type: tools.TypeString, Description: "The program to run", Required: true},
		},
	}
}

func (t *PythonExecTool) Handle(ctx context.Context, inv *tools.Invocation) (*models.ToolResult, error) {
	if inv.Gate == nil {
		return nil, errNoGate
	}
	return inv.Gate.Check(ctx, KindCode, tools.StringArg(inv.Arguments, "code"))
}

// ExecuteCode is the gate executor for KindCode. print() output becomes the
// result message and side-channel globals become Data. When the code
// produces neither, one re-prompt is scheduled so the model can answer in
// words. Interpreter errors are returned unchanged.
func ExecuteCode(ctx context.Context, req gate.Request) (*models.ToolResult, error) {
	var out strings.Builder
	thread := &starlark.Thread{
		Name:  "python_exec",
		Print: func(_ *starlark.Thread, msg string) { out.WriteString(msg); out.WriteByte('\n') },
	}
	thread.SetMaxExecutionSteps(maxExecutionSteps)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	predeclared := starlark.StringDict{
		"math": math.Module,
		"json": json.Module,
		"time": time.Module,
	}
	globals, err := starlark.ExecFileOptions(codeFileOptions, thread, "python_exec", req.Payload, predeclared)
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("%s", evalErr.Backtrace())
		}
		return nil, err
	}

	data := make(map[string]any)
	for _, name := range SideChannelNames {
		if v, ok := globals[name]; ok {
			data[name] = toGo(v)
		}
	}

	result := &models.ToolResult{Message: out.String()}
	if len(data) > 0 {
		result.Data = data
	}
	if result.Message == "" && !result.HasData() && req.Reprompt != nil {
		req.Reprompt.TrySet(1, false)
	}
	return result, nil
}

// toGo converts an interpreter value into plain Go data that survives JSON
// encoding. Values with no natural Go form are rendered with String().
func toGo(v starlark.Value) any {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(x)
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i
		}
		return x.String()
	case starlark.Float:
		return float64(x)
	case starlark.String:
		return string(x)
	case *starlark.List:
		out := make([]any, x.Len())
		for i := 0; i < x.Len(); i++ {
			out[i] = toGo(x.Index(i))
		}
		return out
	case starlark.Tuple:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = toGo(e)
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			key := item[0].String()
			if s, ok := item[0].(starlark.String); ok {
				key = string(s)
			}
			out[key] = toGo(item[1])
		}
		return out
	}
	return v.String()
}

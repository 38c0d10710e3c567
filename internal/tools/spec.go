package tools

import (
	"encoding/json"
	"fmt"
	"math"
)

// Parameter types understood by argument validation.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// ToolSpec defines the specification for a tool (sent to the model in the
// tool instructions).
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// ToolParameter defines a parameter for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Validate checks args against the declared parameters. Unknown extra
// arguments are ignored.
func (s ToolSpec) Validate(args map[string]any) error {
	for _, p := range s.Parameters {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return &ArgumentError{Tool: s.Name, Param: p.Name, Reason: "missing required argument"}
			}
			continue
		}
		if !matchesType(p.Type, v) {
			return &ArgumentError{
				Tool:   s.Name,
				Param:  p.Name,
				Reason: fmt.Sprintf("expected %s, got %T", p.Type, v),
			}
		}
	}
	return nil
}

func matchesType(typ string, v any) bool {
	switch typ {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		_, ok := toInt(v)
		return ok
	case TypeNumber:
		_, ok := toFloat(v)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	}
	// Untyped parameters accept anything.
	return true
}

// maxExactInt is the largest magnitude a float64 holds without rounding.
// JSON numbers arrive as float64, so larger whole values are not trusted.
const maxExactInt = 1 << 53

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > maxExactInt {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// StringArg returns a validated string argument, or "" when absent.
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// IntArg returns a validated integer argument, or 0 when absent.
func IntArg(args map[string]any, name string) int64 {
	i, _ := toInt(args[name])
	return i
}

package builtin

import (
	"context"
	"strings"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/schema"
	"github.com/quillflow/quillflow/engine/tool"
)

// EchoConfig describes the echo tool: it returns its input unchanged, which
// makes it useful for wiring and testing workflows without an LLM call.
func EchoConfig() *tool.Config {
	return &tool.Config{
		ID:          core.ID("builtin-echo"),
		Name:        "echo",
		Description: "Returns its input value unchanged",
		Type:        tool.TypeUtility,
		Handler:     "echo",
		Signature: &tool.Signature{
			Parameters: []tool.Parameter{
				{Name: "value", Required: true},
			},
			Outputs: []tool.OutputField{
				{Name: "value"},
			},
		},
	}
}

func Echo(_ context.Context, input core.Input) (core.Output, error) {
	return core.Output{"value": input["value"]}, nil
}

// ConcatConfig describes the concat tool: it joins a list of values into one
// string with an optional separator.
func ConcatConfig() *tool.Config {
	return &tool.Config{
		ID:          core.ID("builtin-concat"),
		Name:        "concat",
		Description: "Joins values into a single string",
		Type:        tool.TypeUtility,
		Handler:     "concat",
		Signature: &tool.Signature{
			Parameters: []tool.Parameter{
				{Name: "values", Required: true, Schema: &schema.ValueSchema{Type: schema.TypeString, IsArray: true}},
				{Name: "separator", Schema: &schema.ValueSchema{Type: schema.TypeString}},
			},
			Outputs: []tool.OutputField{
				{Name: "text", Schema: &schema.ValueSchema{Type: schema.TypeString}},
			},
		},
	}
}

func Concat(_ context.Context, input core.Input) (core.Output, error) {
	separator := ""
	if sep, ok := input["separator"].(string); ok {
		separator = sep
	}
	var rendered []string
	switch values := input["values"].(type) {
	case []string:
		rendered = values
	case []any:
		for _, value := range values {
			rendered = append(rendered, prompt.Stringify(value))
		}
	default:
		rendered = []string{prompt.Stringify(values)}
	}
	return core.Output{"text": strings.Join(rendered, separator)}, nil
}

package workflow

import (
	"strings"

	"github.com/quillflow/quillflow/engine/core"
)

const (
	bindingInputPrefix = "input."
	bindingStepPrefix  = "step."
)

// Resolve evaluates one mapping expression against the run context:
// "input.<name>" reads a caller-supplied input, "step.<id>.<output>" reads a
// prior step's output record, anything else is a literal constant. Resolution
// is a pure read; failures carry the UNRESOLVED_BINDING code.
func Resolve(expr string, ctx *Context) (any, error) {
	switch {
	case strings.HasPrefix(expr, bindingInputPrefix):
		name := expr[len(bindingInputPrefix):]
		value, ok := ctx.Input[name]
		if !ok {
			return nil, core.Errorf(core.CodeUnresolvedBinding,
				"input %q is not present in the run input", name)
		}
		return value, nil
	case strings.HasPrefix(expr, bindingStepPrefix):
		rest := expr[len(bindingStepPrefix):]
		stepID, outputName, ok := strings.Cut(rest, ".")
		if !ok {
			return nil, core.Errorf(core.CodeUnresolvedBinding,
				"malformed step binding %q, want step.<id>.<output>", expr)
		}
		outputs, ok := ctx.StepOutputs[core.ID(stepID)]
		if !ok {
			return nil, core.Errorf(core.CodeUnresolvedBinding,
				"step %q has not executed in this run", stepID)
		}
		value, ok := outputs[outputName]
		if !ok {
			return nil, core.Errorf(core.CodeUnresolvedBinding,
				"step %q produced no output named %q", stepID, outputName)
		}
		return value, nil
	default:
		return expr, nil
	}
}

// ResolveMappings resolves a whole parameter-mapping block into a named
// value record.
func ResolveMappings(mappings map[string]string, ctx *Context) (core.Input, error) {
	resolved := make(core.Input, len(mappings))
	for name, expr := range mappings {
		value, err := Resolve(expr, ctx)
		if err != nil {
			return nil, err
		}
		resolved[name] = value
	}
	return resolved, nil
}

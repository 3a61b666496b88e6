package workflow

import (
	"github.com/quillflow/quillflow/engine/core"
)

// Context is the mutable state of one run: the caller-supplied inputs, the
// named variables the steps read and write, every step's raw output record,
// and the per-step jump counters. It lives for exactly one execution and is
// never persisted.
type Context struct {
	Input       core.Input
	Variables   map[string]any
	StepOutputs map[core.ID]core.Output
	JumpCounts  map[core.ID]int
}

func NewContext(input core.Input) *Context {
	if input == nil {
		input = core.Input{}
	}
	return &Context{
		Input:       input,
		Variables:   make(map[string]any),
		StepOutputs: make(map[core.ID]core.Output),
		JumpCounts:  make(map[core.ID]int),
	}
}

// RecordOutput stores a step's raw output record and applies its output
// mappings onto the variables.
func (c *Context) RecordOutput(step *Step, output core.Output) {
	c.StepOutputs[step.ID] = output
	for outputName, variableName := range step.OutputMappings {
		c.Variables[variableName] = output[outputName]
	}
}

// CollectOutputs reads the declared output variables into the run result.
// Variables no step ever wrote appear as nil.
func (c *Context) CollectOutputs(cfg *Config) core.Output {
	out := core.Output{}
	for _, v := range cfg.OutputVariables() {
		out[v.Name] = c.Variables[v.Name]
	}
	return out
}

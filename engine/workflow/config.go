package workflow

import (
	"fmt"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/schema"
)

// -----------------------------------------------------------------------------
// Step types
// -----------------------------------------------------------------------------

type StepType string

const (
	StepInput      StepType = "INPUT"
	StepAction     StepType = "ACTION"
	StepEvaluation StepType = "EVALUATION"
)

// IOType marks a workflow variable as an external input or a produced output.
type IOType string

const (
	IOInput  IOType = "input"
	IOOutput IOType = "output"
)

// Variable declares one external value of the workflow: run inputs the caller
// must supply and outputs collected into the run result.
type Variable struct {
	Name   string              `json:"name"             yaml:"name"`
	IOType IOType              `json:"io_type"          yaml:"io_type"`
	Schema *schema.ValueSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Operator compares a resolved variable against a condition's literal value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// Condition is one branch of an evaluation step. A nil TargetStepIndex ends
// the run when the condition matches.
type Condition struct {
	ID              core.ID  `json:"condition_id"                yaml:"condition_id"`
	Variable        string   `json:"variable"                    yaml:"variable"`
	Operator        Operator `json:"operator"                    yaml:"operator"`
	Value           any      `json:"value"                       yaml:"value"`
	TargetStepIndex *int     `json:"target_step_index,omitempty" yaml:"target_step_index,omitempty"`
}

// DefaultAction is what an evaluation step does when no condition matches.
type DefaultAction string

const (
	DefaultContinue DefaultAction = "continue"
	DefaultEnd      DefaultAction = "end"
)

// DefaultMaximumJumps bounds how many times a single evaluation step may
// redirect the run before its conditions stop firing.
const DefaultMaximumJumps = 3

// EvaluationConfig drives an EVALUATION step: ordered conditions checked
// first-match-wins, a fallback action, and the per-step jump bound. A zero
// MaximumJumps forbids jumping entirely; nil means the default bound.
type EvaluationConfig struct {
	Conditions    []Condition   `json:"conditions"              yaml:"conditions"`
	DefaultAction DefaultAction `json:"default_action"          yaml:"default_action"`
	MaximumJumps  *int          `json:"maximum_jumps,omitempty" yaml:"maximum_jumps,omitempty"`
}

// JumpBound returns the configured jump bound, defaulted when unset.
func (e *EvaluationConfig) JumpBound() int {
	if e.MaximumJumps != nil && *e.MaximumJumps >= 0 {
		return *e.MaximumJumps
	}
	return DefaultMaximumJumps
}

// -----------------------------------------------------------------------------
// Steps
// -----------------------------------------------------------------------------

// Step is one node of the workflow sequence. INPUT steps pass mapped values
// through; ACTION steps invoke a tool; EVALUATION steps decide where the run
// goes next.
type Step struct {
	ID                core.ID           `json:"step_id"                      yaml:"step_id"`
	Label             string            `json:"label,omitempty"              yaml:"label,omitempty"`
	SequenceNumber    int               `json:"sequence_number"              yaml:"sequence_number"`
	Type              StepType          `json:"step_type"                    yaml:"step_type"`
	ToolID            core.ID           `json:"tool_id,omitempty"            yaml:"tool_id,omitempty"`
	ParameterMappings map[string]string `json:"parameter_mappings,omitempty" yaml:"parameter_mappings,omitempty"`
	OutputMappings    map[string]string `json:"output_mappings,omitempty"    yaml:"output_mappings,omitempty"`
	Evaluation        *EvaluationConfig `json:"evaluation,omitempty"         yaml:"evaluation,omitempty"`
	Timeout           string            `json:"timeout,omitempty"            yaml:"timeout,omitempty"`
}

// -----------------------------------------------------------------------------
// Workflow Config
// -----------------------------------------------------------------------------

// Config is the persisted workflow definition: the declared variables plus
// the ordered step sequence.
type Config struct {
	ID          core.ID    `json:"workflow_id"           yaml:"workflow_id"`
	Name        string     `json:"name"                  yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Variables   []Variable `json:"variables,omitempty"   yaml:"variables,omitempty"`
	Steps       []Step     `json:"steps"                 yaml:"steps"`
}

// Step returns the step at the given sequence position.
func (c *Config) Step(index int) (*Step, bool) {
	for i := range c.Steps {
		if c.Steps[i].SequenceNumber == index {
			return &c.Steps[i], true
		}
	}
	return nil, false
}

// InputVariables returns the declared run inputs in definition order.
func (c *Config) InputVariables() []Variable {
	return c.variablesOf(IOInput)
}

// OutputVariables returns the declared run outputs in definition order.
func (c *Config) OutputVariables() []Variable {
	return c.variablesOf(IOOutput)
}

func (c *Config) variablesOf(io IOType) []Variable {
	var out []Variable
	for _, v := range c.Variables {
		if v.IOType == io {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks the structural invariants every runnable workflow must
// satisfy. Runs fail before executing any step when these do not hold.
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return core.Errorf(core.CodeInvalidWorkflow, "workflow %s has no steps", c.ID)
	}
	if err := c.validateSequence(); err != nil {
		return err
	}
	if err := c.validateVariables(); err != nil {
		return err
	}
	for i := range c.Steps {
		if err := c.validateStep(&c.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateSequence requires sequence numbers to form the dense range 0..N-1
// with no duplicates or gaps.
func (c *Config) validateSequence() error {
	seen := make(map[int]bool, len(c.Steps))
	for i := range c.Steps {
		n := c.Steps[i].SequenceNumber
		if n < 0 || n >= len(c.Steps) {
			return core.Errorf(core.CodeInvalidWorkflow,
				"step %s: sequence number %d outside 0..%d", c.Steps[i].ID, n, len(c.Steps)-1)
		}
		if seen[n] {
			return core.Errorf(core.CodeInvalidWorkflow,
				"duplicate sequence number %d", n)
		}
		seen[n] = true
	}
	return nil
}

func (c *Config) validateVariables() error {
	seen := make(map[IOType]map[string]bool)
	for _, v := range c.Variables {
		if v.Name == "" {
			return core.Errorf(core.CodeInvalidWorkflow, "variable with empty name")
		}
		if v.IOType != IOInput && v.IOType != IOOutput {
			return core.Errorf(core.CodeInvalidWorkflow,
				"variable %q has unknown io type %q", v.Name, v.IOType)
		}
		if seen[v.IOType] == nil {
			seen[v.IOType] = make(map[string]bool)
		}
		if seen[v.IOType][v.Name] {
			return core.Errorf(core.CodeInvalidWorkflow,
				"duplicate %s variable %q", v.IOType, v.Name)
		}
		seen[v.IOType][v.Name] = true
		if err := v.Schema.Validate(); err != nil {
			return core.NewError(
				fmt.Errorf("variable %q: %w", v.Name, err), core.CodeInvalidWorkflow, nil)
		}
	}
	return nil
}

func (c *Config) validateStep(step *Step) error {
	switch step.Type {
	case StepInput:
		// Mappings only; nothing extra to require.
	case StepAction:
		if step.ToolID.IsZero() {
			return core.Errorf(core.CodeInvalidStepConfiguration,
				"action step %s has no tool", step.ID)
		}
	case StepEvaluation:
		if step.Evaluation == nil || len(step.Evaluation.Conditions) == 0 {
			return core.Errorf(core.CodeInvalidStepConfiguration,
				"evaluation step %s has no conditions", step.ID)
		}
		return c.validateEvaluation(step)
	default:
		return core.Errorf(core.CodeInvalidStepConfiguration,
			"step %s has unknown type %q", step.ID, step.Type)
	}
	return nil
}

func (c *Config) validateEvaluation(step *Step) error {
	eval := step.Evaluation
	switch eval.DefaultAction {
	case DefaultContinue, DefaultEnd, "":
	default:
		return core.Errorf(core.CodeInvalidStepConfiguration,
			"evaluation step %s has unknown default action %q", step.ID, eval.DefaultAction)
	}
	for _, cond := range eval.Conditions {
		switch cond.Operator {
		case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpNotContains:
		default:
			return core.Errorf(core.CodeInvalidStepConfiguration,
				"condition %s has unknown operator %q", cond.ID, cond.Operator)
		}
		if cond.TargetStepIndex != nil {
			target := *cond.TargetStepIndex
			if target < 0 || target >= len(c.Steps) {
				// Dangling jump targets are a structural defect of the whole
				// workflow, same class as a broken sequence.
				return core.Errorf(core.CodeInvalidWorkflow,
					"condition %s targets step %d outside 0..%d", cond.ID, target, len(c.Steps)-1)
			}
		}
	}
	return nil
}

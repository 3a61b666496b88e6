package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/pkg/logger"
)

// Executor runs a single step against the run context. Tool lookups go
// through the store so ACTION steps always see the current definition.
type Executor struct {
	store          Store
	defaultTimeout time.Duration
}

func NewExecutor(store Store, defaultTimeout time.Duration) *Executor {
	return &Executor{store: store, defaultTimeout: defaultTimeout}
}

// Execute runs one step. Every step yields a decision; non-evaluation steps
// always continue.
func (e *Executor) Execute(ctx context.Context, step *Step, runCtx *Context) (Decision, error) {
	switch step.Type {
	case StepInput:
		e.executeInput(step, runCtx)
		return Continue(), nil
	case StepAction:
		if err := e.executeAction(ctx, step, runCtx); err != nil {
			return Decision{}, err
		}
		return Continue(), nil
	case StepEvaluation:
		return Evaluate(step, runCtx), nil
	default:
		return Decision{}, core.Errorf(core.CodeInvalidStepConfiguration,
			"step %s has unknown type %q", step.ID, step.Type)
	}
}

// executeInput passes mapped run inputs through into variables. Absent input
// keys record as nil; required-ness was already enforced before the run
// started.
func (e *Executor) executeInput(step *Step, runCtx *Context) {
	output := core.Output{}
	for outputName := range step.OutputMappings {
		output[outputName] = runCtx.Input[outputName]
	}
	runCtx.RecordOutput(step, output)
}

func (e *Executor) executeAction(ctx context.Context, step *Step, runCtx *Context) error {
	log := logger.FromContext(ctx)

	def, err := e.store.GetTool(ctx, step.ToolID)
	if err != nil {
		return err
	}
	input, err := ResolveMappings(step.ParameterMappings, runCtx)
	if err != nil {
		return err
	}

	callCtx := ctx
	if timeout, err := e.stepTimeout(step); err != nil {
		return err
	} else if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	output, err := def.Call(callCtx, input)
	if err != nil {
		return fmt.Errorf("step %s (%s): %w", step.ID, def.Name(), err)
	}
	log.Debug("action step completed",
		"step", step.ID, "tool", def.Name(), "duration", time.Since(started))

	runCtx.RecordOutput(step, output)
	return nil
}

func (e *Executor) stepTimeout(step *Step) (time.Duration, error) {
	if step.Timeout == "" {
		return e.defaultTimeout, nil
	}
	timeout, err := time.ParseDuration(step.Timeout)
	if err != nil {
		return 0, core.Errorf(core.CodeInvalidStepConfiguration,
			"step %s has invalid timeout %q", step.ID, step.Timeout)
	}
	return timeout, nil
}

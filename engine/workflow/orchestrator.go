package workflow

import (
	"context"
	"time"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/schema"
	"github.com/quillflow/quillflow/pkg/logger"
)

// Orchestrator owns the run lifecycle: validation, the sequence-indexed
// execution loop with evaluation branching, and the terminal status write.
// Status moves draft -> running -> completed|failed; the orchestrator is the
// only writer of a workflow's status while a run is in flight.
type Orchestrator struct {
	store    Store
	executor *Executor
}

func NewOrchestrator(store Store, executor *Executor) *Orchestrator {
	return &Orchestrator{store: store, executor: executor}
}

// Execute runs the workflow against the caller's input and returns the run
// result. The returned error repeats the result's failure so callers can use
// either; the original error text is never masked.
func (o *Orchestrator) Execute(ctx context.Context, workflowID core.ID, input core.Input) (*RunResult, error) {
	log := logger.FromContext(ctx)

	cfg, err := o.store.LoadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:      core.MustNewID(),
		WorkflowID: cfg.ID,
		StartedAt:  time.Now(),
	}

	// Fail fast before any side effect, including the running transition.
	if err := cfg.Validate(); err != nil {
		return o.finish(ctx, result, nil, err)
	}
	if err := validateInput(cfg, input); err != nil {
		return o.finish(ctx, result, nil, err)
	}

	result.Status = core.StatusRunning
	if err := o.store.PersistRunResult(ctx, result); err != nil {
		return nil, err
	}
	log.Info("run started", "workflow", cfg.ID, "run", result.RunID, "steps", len(cfg.Steps))

	runCtx := NewContext(input)
	seedVariables(cfg, runCtx)

	if err := o.runSteps(ctx, cfg, runCtx); err != nil {
		return o.finish(ctx, result, nil, err)
	}
	return o.finish(ctx, result, runCtx.CollectOutputs(cfg), nil)
}

// runSteps is the sequence-indexed loop. Cancellation is checked at step
// boundaries only; an in-flight tool call finishes on its own clock.
func (o *Orchestrator) runSteps(ctx context.Context, cfg *Config, runCtx *Context) error {
	log := logger.FromContext(ctx)
	index := 0
	for index >= 0 && index < len(cfg.Steps) {
		if err := ctx.Err(); err != nil {
			return core.NewError(err, core.CodeStepExecution, map[string]any{"step_index": index})
		}
		step, ok := cfg.Step(index)
		if !ok {
			return core.Errorf(core.CodeInvalidWorkflow, "no step at sequence %d", index)
		}
		decision, err := o.executor.Execute(ctx, step, runCtx)
		if err != nil {
			return err
		}
		switch decision.Kind {
		case DecisionJump:
			log.Debug("evaluation jump", "from", index, "to", decision.Target)
			index = decision.Target
		case DecisionEnd:
			log.Debug("evaluation ended run", "at", index)
			return nil
		default:
			index++
		}
	}
	return nil
}

func (o *Orchestrator) finish(
	ctx context.Context,
	result *RunResult,
	output core.Output,
	runErr error,
) (*RunResult, error) {
	log := logger.FromContext(ctx)
	result.FinishedAt = time.Now()
	if runErr != nil {
		result.Status = core.StatusFailed
		result.Error = core.AsError(runErr)
		log.Error("run failed", "run", result.RunID, "error", runErr)
	} else {
		result.Status = core.StatusCompleted
		result.Output = output
		log.Info("run completed", "run", result.RunID)
	}
	// Persist on a fresh context so a cancelled run still records its end.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.store.PersistRunResult(persistCtx, result); err != nil {
		log.Error("persisting run result failed", "run", result.RunID, "error", err)
	}
	return result, runErr
}

// validateInput requires every declared input variable to be present in the
// caller's input map and, when a schema is declared, to match it.
func validateInput(cfg *Config, input core.Input) error {
	for _, v := range cfg.InputVariables() {
		value, ok := input[v.Name]
		if !ok {
			return core.Errorf(core.CodeVariableValidation,
				"required input %q is missing", v.Name)
		}
		if err := schema.ValidateValue(v.Schema, value); err != nil {
			return core.NewError(err, core.CodeVariableValidation,
				map[string]any{"variable": v.Name})
		}
	}
	return nil
}

// seedVariables copies the run input into the variable state under the
// declared input names.
func seedVariables(cfg *Config, runCtx *Context) {
	for _, v := range cfg.InputVariables() {
		runCtx.Variables[v.Name] = runCtx.Input[v.Name]
	}
}

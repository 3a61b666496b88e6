package workflow

import (
	"context"
	"time"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/tool"
)

// RunResult summarizes one finished execution.
type RunResult struct {
	RunID      core.ID         `json:"run_id"`
	WorkflowID core.ID         `json:"workflow_id"`
	Status     core.StatusType `json:"status"`
	Output     core.Output     `json:"output,omitempty"`
	Error      *core.Error     `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Store is the persistence surface the orchestrator needs: definition
// lookups plus the single write that records a run's status transition.
type Store interface {
	tool.TemplateSource

	LoadWorkflow(ctx context.Context, id core.ID) (*Config, error)
	GetTool(ctx context.Context, id core.ID) (tool.Definition, error)
	PersistRunResult(ctx context.Context, result *RunResult) error
}
